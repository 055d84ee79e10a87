package app

// ─────────────────────────────────────────────────────────────
// Design Handlers — save, drafts, remote designs, API token
// ─────────────────────────────────────────────────────────────

import (
	"errors"
	"strings"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"studio/internal/domain"
	"studio/internal/secret"
	"studio/internal/service"
)

// ── Save ───────────────────────────────────────────────────

// SaveDesign writes a local draft and then saves to the backend. When the
// backend fails the draft is still returned along with the error.
func (a *App) SaveDesign(in service.SaveInput) (_ *domain.Draft, err error) {
	defer a.rescue("SaveDesign", &err)
	d, err := a.st.designs.Save(a.ctx, in)
	if err != nil && !errors.Is(err, service.ErrBusy) {
		wailsRuntime.LogErrorf(a.ctx, "[SaveDesign] %v", err)
	}
	return d, err
}

// ── Drafts ─────────────────────────────────────────────────

func (a *App) ListDrafts() (_ []domain.Draft, err error) {
	defer a.rescue("ListDrafts", &err)
	return a.st.designs.ListDrafts()
}

func (a *App) OpenDraft(id string) (_ *domain.Draft, err error) {
	defer a.rescue("OpenDraft", &err)
	return a.st.designs.OpenDraft(a.ctx, id)
}

func (a *App) DeleteDraft(id string) (err error) {
	defer a.rescue("DeleteDraft", &err)
	return a.st.designs.DeleteDraft(a.ctx, id)
}

// ── Remote designs ─────────────────────────────────────────

func (a *App) ListMyDesigns() (_ []domain.Design, err error) {
	defer a.rescue("ListMyDesigns", &err)
	return a.st.designs.ListRemote(a.ctx)
}

func (a *App) OpenRemoteDesign(id string) (_ *domain.Draft, err error) {
	defer a.rescue("OpenRemoteDesign", &err)
	return a.st.designs.OpenRemote(a.ctx, id)
}

// ── API token ──────────────────────────────────────────────

// SetAPIToken stores the backend token in the secret store. An empty
// token removes it.
func (a *App) SetAPIToken(token string) (err error) {
	defer a.rescue("SetAPIToken", &err)
	token = strings.TrimSpace(token)
	if token == "" {
		return a.st.secrets.Delete(secret.TokenKey)
	}
	return a.st.secrets.Set(secret.TokenKey, []byte(token))
}

func (a *App) GetTokenStatus() TokenStatus {
	if v, err := a.st.secrets.Get(secret.TokenKey); err == nil && len(v) > 0 {
		return TokenStatus{Set: true, Source: "keychain"}
	}
	if a.cfg.API.Token != "" {
		return TokenStatus{Set: true, Source: "config"}
	}
	return TokenStatus{}
}
