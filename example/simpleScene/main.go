package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/config"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

var gravity = mgl64.Vec3{0, -9.81, 0}

// TickStats is one row of the telemetry CSV
type TickStats struct {
	Tick         int     `csv:"tick"`
	Moved        float64 `csv:"moved"`
	Collisions   int     `csv:"collisions"`
	Grounded     int     `csv:"grounded"`
	Overlapping  int     `csv:"overlapping"`
	TreeCost     float64 `csv:"tree_cost"`
	TreeHeight   int     `csv:"tree_height"`
	RayHitHeight float64 `csv:"ray_hit_height"`
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	ticks := flag.Int("ticks", 240, "Number of simulated ticks")
	movers := flag.Int("movers", 32, "Number of falling colliders")
	seed := flag.Uint64("seed", 1, "RNG seed")
	csvPath := flag.String("csv", "", "Write per tick telemetry to this CSV file")
	savePath := flag.String("save", "", "Save the colliders to this file at the end")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(os.Stdout, cfg.Logging)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	scene := NewScene()
	physics := plume.NewPhysicsSystem(cfg.Physics, logger)

	if err := buildScene(scene, physics, *movers, rand.New(rand.NewPCG(*seed, *seed))); err != nil {
		slog.Error("failed to build the scene", "error", err)
		os.Exit(1)
	}

	physics.Subscribe(plume.AREA_ENTER, func(event plume.Event) {
		e := event.(plume.AreaEnterEvent)
		slog.Debug("area entered", "node_a", e.NodeA, "node_b", e.NodeB)
	})

	records := run(scene, physics, *ticks)

	if *csvPath != "" {
		if err := writeCSV(*csvPath, records); err != nil {
			slog.Error("failed to write telemetry", "error", err)
			os.Exit(1)
		}
	}
	if *savePath != "" {
		if err := save(*savePath, physics); err != nil {
			slog.Error("failed to save colliders", "error", err)
			os.Exit(1)
		}
	}

	summarize(records)
}

// buildScene creates a floor, a trigger zone in its middle and movers falling from above
func buildScene(scene *Scene, physics *plume.PhysicsSystem, movers int, rng *rand.Rand) error {
	const half = 20.0
	floor := []mgl64.Vec3{
		{-half, 0, -half}, {-half, 0, half}, {half, 0, half},
		{-half, 0, -half}, {half, 0, half}, {half, 0, -half},
	}
	node := scene.AddStatic(actor.NewTransform())
	if _, err := physics.AddMeshCollider(node, plume.TypeCollider, floor, scene.GlobalTransform(node)); err != nil {
		return err
	}

	zone := actor.NewTransform()
	zone.Position = mgl64.Vec3{0, 1, 0}
	node = scene.AddStatic(zone)
	if _, err := physics.AddBoxCollider(node, plume.TypeArea, actor.Box{Dimensions: mgl64.Vec3{8, 2, 8}}, zone); err != nil {
		return err
	}

	for i := range movers {
		transform := actor.NewTransform()
		transform.Position = mgl64.Vec3{
			(rng.Float64()*2 - 1) * (half - 2),
			2 + rng.Float64()*10,
			(rng.Float64()*2 - 1) * (half - 2),
		}
		velocity := mgl64.Vec3{rng.Float64()*2 - 1, 0, rng.Float64()*2 - 1}
		node := scene.AddMover(transform, velocity)

		var err error
		switch i % 3 {
		case 0:
			_, err = physics.AddSphereCollider(node, plume.TypeCollider, actor.Sphere{Radius: 0.5}, transform)
		case 1:
			_, err = physics.AddBoxCollider(node, plume.TypeCollider, actor.Box{Dimensions: mgl64.Vec3{1, 1, 1}}, transform)
		case 2:
			_, err = physics.AddCapsuleCollider(node, plume.TypeCollider, actor.Capsule{End: mgl64.Vec3{0, 1, 0}, Radius: 0.3}, transform)
		}
		if err != nil {
			return err
		}
	}

	slog.Info("scene built", "nodes", len(scene.entities), "movers", movers)
	return nil
}

func run(scene *Scene, physics *plume.PhysicsSystem, ticks int) []TickStats {
	const dt = 1.0 / 60.0

	var transforms, history []actor.Transform
	history = scene.Transforms(history)
	physics.Update(history, history)

	records := make([]TickStats, 0, ticks)
	for tick := range ticks {
		record := TickStats{Tick: tick}

		query := scene.moverFilter.Query()
		for query.Next() {
			node, _, velocity, mover := query.Get()

			velocity.Linear = velocity.Linear.Add(gravity.Mul(dt))
			result := physics.MoveAndCollide(scene, node.ID, velocity.Linear.Mul(dt))

			mover.Grounded = result.Grounded
			if result.Grounded {
				velocity.Linear[1] = 0
			}
			record.Moved += result.MoveDistance
			record.Collisions += result.NCollisions
			if result.Grounded {
				record.Grounded++
			}
		}

		transforms = scene.Transforms(transforms)
		physics.Update(transforms, history)
		history, transforms = transforms, history

		record.Overlapping = physics.OverlapCount()
		record.TreeCost = physics.Colliders().Tree.Cost()
		record.TreeHeight = physics.Colliders().Tree.Height()
		if hit, ok := physics.Raycast(mgl64.Vec3{0, 50, 0}, mgl64.Vec3{0, -1, 0}, 100, math.MaxUint16, plume.ColliderTag{Shape: plume.ShapeNone}); ok {
			record.RayHitHeight = hit.Position.Y()
		}

		records = append(records, record)
	}

	return records
}

func writeCSV(path string, records []TickStats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

func save(path string, physics *plume.PhysicsSystem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	return physics.Save(f)
}

// summarize logs the distribution of the per tick movement and broad phase cost
func summarize(records []TickStats) {
	if len(records) == 0 {
		return
	}

	moved := make([]float64, len(records))
	cost := make([]float64, len(records))
	for i, r := range records {
		moved[i] = r.Moved
		cost[i] = r.TreeCost
	}

	meanMoved, stdMoved := stat.MeanStdDev(moved, nil)
	slices.Sort(cost)

	last := records[len(records)-1]
	slog.Info("simulation done",
		"ticks", len(records),
		"moved_mean", meanMoved,
		"moved_stddev", stdMoved,
		"tree_cost_median", stat.Quantile(0.5, stat.Empirical, cost, nil),
		"tree_cost_p95", stat.Quantile(0.95, stat.Empirical, cost, nil),
		"grounded", last.Grounded,
		"overlapping", last.Overlapping,
	)
}
