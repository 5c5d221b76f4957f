package smooth

import (
	"context"
	"errors"
	"fmt"
	"github.com/notargets/tetsmooth/partitions"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

// nodeOp is one strategy step on a node. volumeTarget is fixed for a whole
// pass so that concurrent workers never read cells they do not own.
type nodeOp func(node int, volumeTarget float64) error

func (o *Optimizer) strategy() (nodeOp, error) {
	switch o.Config.Strategy {
	case StrategyGradient:
		return func(n int, _ float64) error { return o.SmoothNode(n) }, nil
	case StrategyLaplacian:
		return func(n int, _ float64) error { return o.Laplacian(n) }, nil
	case StrategySmartLaplacian:
		return func(n int, _ float64) error { return o.SmartLaplacian(n) }, nil
	case StrategyVolume:
		return o.smoothNodeVolume, nil
	case StrategyIdeal:
		return func(n int, _ float64) error { return o.SmoothNodeIdeal(n) }, nil
	case StrategySimplex:
		return func(n int, _ float64) error { return o.SmoothNodeSimplex(n) }, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", o.Config.Strategy)
}

// passable reports errors a batch pass steps over.
func passable(err error) bool {
	return Skipped(err) || errors.Is(err, ErrNoGeometry)
}

func (o *Optimizer) passSetup() (nodeOp, float64, error) {
	op, err := o.strategy()
	if err != nil {
		return nil, 0, err
	}
	target := 0.0
	if o.Config.Strategy == StrategyVolume {
		if target, err = o.averageVolume(); err != nil {
			return nil, 0, err
		}
	}
	return op, target, nil
}

// Smooth applies Config.Strategy once to every thawed node in id order and
// returns how many nodes moved.
func (o *Optimizer) Smooth() (int, error) {
	start := time.Now()
	op, target, err := o.passSetup()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, node := range o.Mesh.NodeIDs() {
		if o.Mesh.Frozen(node) {
			continue
		}
		err := op(node, target)
		switch {
		case err == nil:
			moved++
		case passable(err):
		default:
			return moved, fmt.Errorf("smooth node %d: %w", node, err)
		}
	}
	o.Log.WithFields(logrus.Fields{
		"op":       "smooth",
		"strategy": o.Config.Strategy,
		"moved":    moved,
		"elapsed":  time.Since(start),
	}).Info("pass done")
	return moved, nil
}

// SmoothConcurrent is Smooth with the cells split into partitions. Nodes
// private to a partition are smoothed by up to Config.Workers goroutines,
// one partition per goroutine; nodes on partition boundaries follow on the
// calling goroutine. Cancelling ctx stops the pass between nodes.
func (o *Optimizer) SmoothConcurrent(ctx context.Context) (int, error) {
	start := time.Now()
	op, target, err := o.passSetup()
	if err != nil {
		return 0, err
	}
	sched, err := o.schedule()
	if err != nil {
		return 0, err
	}

	var moved atomic.Int64
	run := func(ctx context.Context, nodes []int) error {
		for _, node := range nodes {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.Mesh.Frozen(node) {
				continue
			}
			err := op(node, target)
			switch {
			case err == nil:
				moved.Add(1)
			case passable(err):
			default:
				return fmt.Errorf("smooth node %d: %w", node, err)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Config.Workers)
	for _, nodes := range sched.Private {
		if len(nodes) == 0 {
			continue
		}
		g.Go(func() error { return run(gctx, nodes) })
	}
	if err := g.Wait(); err != nil {
		return int(moved.Load()), err
	}
	if err := run(ctx, sched.Shared); err != nil {
		return int(moved.Load()), err
	}

	o.Log.WithFields(logrus.Fields{
		"op":         "smooth_concurrent",
		"strategy":   o.Config.Strategy,
		"partitions": len(sched.Private),
		"private":    sched.NumPrivate(),
		"shared":     len(sched.Shared),
		"moved":      moved.Load(),
		"elapsed":    time.Since(start),
	}).Info("pass done")
	return int(moved.Load()), nil
}

// schedule partitions the current cells and splits the nodes accordingly.
func (o *Optimizer) schedule() (*partitions.Schedule, error) {
	strategy, err := partitions.ParseStrategy(o.Config.PartitionStrategy)
	if err != nil {
		return nil, err
	}
	conn, err := partitions.NewMeshConnectivity(o.Mesh)
	if err != nil {
		return nil, err
	}
	pb := &partitions.PartitionBuilder{
		Mesh:                conn,
		TargetPartitionSize: o.Config.PartitionSize,
		Strategy:            strategy,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, err
	}
	sched, err := partitions.BuildSchedule(layout, o.Mesh)
	if err != nil {
		return nil, err
	}
	o.Log.WithFields(logrus.Fields{"op": "schedule"}).Debug(layout.PartitionStatistics().String())
	return sched, nil
}
