package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// Autosave — periodic local draft save
// ─────────────────────────────────────────────────────────────

const autosaveTimeout = 30 * time.Second

// Autosaver runs a save function on a cron schedule such as "@every 30s".
type Autosaver struct {
	sched *cron.Cron
	save  func(ctx context.Context) error
}

func NewAutosaver(spec string, save func(ctx context.Context) error) (*Autosaver, error) {
	a := &Autosaver{sched: cron.New(), save: save}
	if _, err := a.sched.AddFunc(spec, a.run); err != nil {
		return nil, fmt.Errorf("autosave: invalid schedule %q: %w", spec, err)
	}
	return a, nil
}

func (a *Autosaver) run() {
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if err := a.save(ctx); err != nil {
		log.Printf("autosave: %v", err)
	}
}

func (a *Autosaver) Start() {
	a.sched.Start()
	log.Printf("autosave: scheduled")
}

// Stop halts the schedule and waits for a running save.
func (a *Autosaver) Stop() {
	<-a.sched.Stop().Done()
}
