package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/blobstore"     //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/codec"         //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/config"        //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/fs"            //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/hash"          //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/logger"        //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/observer"      //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/sourcecontrol" //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/telemetry"     //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// LogControl switches the output mode of a logger.
type LogControl interface {
	SetJSON(enable bool)
	SetVerbose(enable bool)
}

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
	// LogControl is nil when the logger cannot switch modes.
	LogControl LogControl
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			scheduler.NodeID,
			sourcecontrol.NodeID,
			fs.ResolverNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
			hash.FactoryNodeID,
			codec.FactoryNodeID,
			blobstore.OpenerNodeID,
			observer.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}

	hashes, err := graft.Dep[ports.FileHashProvider](ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := graft.Dep[ports.InputResolver](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	hashers, err := graft.Dep[hash.Factory](ctx)
	if err != nil {
		return nil, err
	}

	codecs, err := graft.Dep[codec.Factory](ctx)
	if err != nil {
		return nil, err
	}

	openStore, err := graft.Dep[blobstore.Opener](ctx)
	if err != nil {
		return nil, err
	}

	observers, err := graft.Dep[observer.Factory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, sched, hashes, resolver, tracer, log, Adapters{
		Hashers:   hashers,
		Codecs:    codecs,
		OpenStore: openStore,
		Observers: observers,
	}), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	a, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	ctl, _ := log.(LogControl)
	return &Components{
		App:        a,
		Logger:     log,
		LogControl: ctl,
	}, nil
}
