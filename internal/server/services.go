package server

import (
	"fmt"
	"time"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/constraint"
	"github.com/matthewbaird/parentref/internal/event"
	"github.com/matthewbaird/parentref/internal/eventbus"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/reference"
	"github.com/matthewbaird/parentref/internal/settings"
	"github.com/matthewbaird/parentref/internal/widget"
)

// Backend is the record and settings storage the services run on.
type Backend interface {
	widget.RecordStore
	Factory() lookup.Factory
}

// Options configures NewServices.
type Options struct {
	Definitions *config.Config
	Backend     Backend
	Settings    settings.Store
	Secret      []byte
	FormMaxAge  time.Duration // default 24h
	FormIdle    time.Duration // default 30m
	EventBuffer int
}

// Services is the wired application shared by every transport.
type Services struct {
	Definitions  *config.Config
	Lookups      *lookup.Registry
	Verifier     *settings.Verifier
	Forms        *form.Manager
	Builder      *widget.Builder
	Submitter    *widget.Submitter
	Autocomplete *widget.Autocompleter
	Bus          *eventbus.Bus
	Events       *event.Log
}

// NewServices builds the registries and pipelines once. Unknown selection
// handlers and broken path rules fail here rather than on first request.
func NewServices(opts Options) (*Services, error) {
	if opts.Definitions == nil || opts.Backend == nil || opts.Settings == nil {
		return nil, fmt.Errorf("server: definitions, backend and settings store are required")
	}
	if opts.FormMaxAge <= 0 {
		opts.FormMaxAge = 24 * time.Hour
	}
	if opts.FormIdle <= 0 {
		opts.FormIdle = 30 * time.Minute
	}

	lookups := lookup.NewRegistry()
	lookups.Register(lookup.HandlerParentFieldReference, opts.Backend.Factory())
	if err := opts.Definitions.CheckHandlers(lookups); err != nil {
		return nil, err
	}

	hooks := parentpath.NewHooks()
	if rules := opts.Definitions.PathRules(); len(rules) > 0 {
		alterer, err := parentpath.NewExprAlterer(rules)
		if err != nil {
			return nil, err
		}
		if err := hooks.Register("path_rules", alterer); err != nil {
			return nil, err
		}
	}
	resolver := parentpath.NewResolver(hooks)

	signer, err := settings.NewSigner(opts.Secret)
	if err != nil {
		return nil, err
	}
	verifier := settings.NewVerifier(signer, opts.Settings)
	m := matcher.New(lookups, matcher.DefaultConfig())
	forms := form.NewManager(opts.FormMaxAge, opts.FormIdle)

	bus := eventbus.New(opts.EventBuffer)
	events := event.NewLog(500)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("recent", events)

	submitter := widget.NewSubmitter(opts.Definitions, forms, resolver, reference.NewValidator(lookups), constraint.NewRegistry(), opts.Backend)
	submitter.SetPublisher(bus)

	return &Services{
		Definitions:  opts.Definitions,
		Lookups:      lookups,
		Verifier:     verifier,
		Forms:        forms,
		Builder:      widget.NewBuilder(opts.Definitions, forms, verifier, resolver, m),
		Submitter:    submitter,
		Autocomplete: widget.NewAutocompleter(verifier, m),
		Bus:          bus,
		Events:       events,
	}, nil
}
