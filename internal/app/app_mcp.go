package app

import "studio/internal/storage"

// ============================================================
// MCP approvals (requests written by the standalone server)
// ============================================================

func (a *App) ListPendingApprovals() (_ []storage.PendingApproval, err error) {
	defer a.rescue("ListPendingApprovals", &err)
	return a.st.approvals.ListPendingApprovals()
}

func (a *App) ApproveMCPAction(id string) (err error) {
	defer a.rescue("ApproveMCPAction", &err)
	return a.st.approvals.ResolveApproval(id, true)
}

func (a *App) RejectMCPAction(id string) (err error) {
	defer a.rescue("RejectMCPAction", &err)
	return a.st.approvals.ResolveApproval(id, false)
}
