package main

import (
	"fmt"
	"sync"

	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/persist"
	"github.com/Veraticus/tally/internal/service"
)

type pipelineOptions struct {
	Presenter    confirm.Presenter
	Synchronous  bool
	UseEventTime bool
}

// pipeline is the engine, the confirmation controller and the write queue wired together.
type pipeline struct {
	engine     *engine.Engine
	controller *confirm.Controller
	queue      *persist.Queue
	outcomes   *outcomeCounter
}

func newPipeline(src config.Source, ledger service.Storage, opts pipelineOptions) *pipeline {
	s := src.Settings()
	outcomes := &outcomeCounter{counts: make(map[confirm.Outcome]int)}
	queue := persist.NewQueue(ledger, persist.Options{Blocking: true})

	controller := confirm.NewController(queue, confirm.Options{
		Presenter:  opts.Presenter,
		Catalogue:  catalogue{settings: src, assets: ledger},
		OnResolved: outcomes.record,
		Cooldown:   s.AutoTrack.Cooldown(),
	})

	return &pipeline{
		engine: engine.New(src, controller, engine.Options{
			Synchronous:  opts.Synchronous,
			UseEventTime: opts.UseEventTime,
		}),
		controller: controller,
		queue:      queue,
		outcomes:   outcomes,
	}
}

// Close stops scanning, waits for an open prompt and drains pending writes.
func (p *pipeline) Close() {
	p.engine.Stop()
	p.controller.Wait()
	p.queue.Close()
}

type outcomeCounter struct {
	counts map[confirm.Outcome]int
	mu     sync.Mutex
}

func (o *outcomeCounter) record(res confirm.Resolution) {
	o.mu.Lock()
	o.counts[res.Outcome]++
	o.mu.Unlock()
}

func (o *outcomeCounter) get(outcome confirm.Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[outcome]
}

// Summary renders the outcome counts for the interrupt message.
func (o *outcomeCounter) Summary() string {
	return fmt.Sprintf("%d saved, %d cancelled, %d failed",
		o.get(confirm.Saved), o.get(confirm.Cancelled), o.get(confirm.Failed))
}
