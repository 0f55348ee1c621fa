package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/config"
	"github.com/akmonengine/plume/debugdraw"
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	dt           = 1.0 / 60.0
)

var (
	colliderColor = rl.DarkGray
	areaColor     = rl.Green
	selectedColor = rl.Orange
	gravity       = mgl64.Vec3{0, -9.81, 0}
)

// scene is a flat transform cache indexed by node
type scene struct {
	transforms []actor.Transform
	velocities []mgl64.Vec3
	movers     []plume.NodeID
}

func (s *scene) GlobalTransform(node plume.NodeID) actor.Transform {
	return s.transforms[node]
}

func (s *scene) SetGlobalTransform(node plume.NodeID, transform actor.Transform) {
	s.transforms[node] = transform
}

func (s *scene) add(position mgl64.Vec3) plume.NodeID {
	transform := actor.NewTransform()
	transform.Position = position
	s.transforms = append(s.transforms, transform)
	s.velocities = append(s.velocities, mgl64.Vec3{})
	return plume.NodeID(len(s.transforms) - 1)
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(os.Stderr, cfg.Logging)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	physics := plume.NewPhysicsSystem(cfg.Physics, logger)
	s := &scene{}
	if err := build(s, physics); err != nil {
		slog.Error("failed to build the scene", "error", err)
		os.Exit(1)
	}

	rl.InitWindow(screenWidth, screenHeight, "plume viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	camera := rl.Camera3D{
		Position:   rl.Vector3{X: 12, Y: 10, Z: 12},
		Target:     rl.Vector3Zero(),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	renderer := debugdraw.NewMemoryRenderer()
	history := append([]actor.Transform(nil), s.transforms...)
	physics.Update(s.transforms, history)

	running := false
	showAreas := true
	selected := plume.NoNode

	for !rl.WindowShouldClose() {
		rl.UpdateCamera(&camera, rl.CameraOrbital)

		if rl.IsKeyPressed(rl.KeySpace) {
			running = !running
		}
		step := rl.IsKeyPressed(rl.KeyRight)

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		if gui.Button(rl.Rectangle{X: 10, Y: 10, Width: 120, Height: 30}, toggleText(running, "Pause", "Run")) {
			running = !running
		}
		if gui.Button(rl.Rectangle{X: 140, Y: 10, Width: 120, Height: 30}, "Step") {
			step = true
		}
		showAreas = gui.CheckBox(rl.Rectangle{X: 10, Y: 50, Width: 20, Height: 20}, "Areas", showAreas)

		if running || step {
			copy(history, s.transforms)
			tick(s, physics)
			physics.Update(s.transforms, history)
		}

		if rl.IsMouseButtonPressed(rl.MouseRightButton) {
			selected = pick(camera, physics)
		}

		data := physics.CollectRenderData(renderer, s.transforms, selected)

		rl.BeginMode3D(camera)
		rl.DrawGrid(20, 1)
		for _, segment := range renderer.Segments(data) {
			color := colliderColor
			switch {
			case segment.Selected:
				color = selectedColor
			case segment.Tag.Type == plume.TypeArea:
				if !showAreas {
					continue
				}
				color = areaColor
			}
			rl.DrawLine3D(toVector3(segment.Start), toVector3(segment.End), color)
		}
		rl.EndMode3D()

		rl.DrawText(fmt.Sprintf("colliders: %d  areas: %d  overlaps: %d  tree height: %d",
			physics.Colliders().Len(), physics.Areas().Len(), physics.OverlapCount(), physics.Colliders().Tree.Height()),
			10, screenHeight-30, 20, rl.DarkGray)
		rl.DrawFPS(screenWidth-100, 10)
		rl.EndDrawing()
	}
}

func build(s *scene, physics *plume.PhysicsSystem) error {
	const half = 8.0
	floor := []mgl64.Vec3{
		{-half, 0, -half}, {-half, 0, half}, {half, 0, half},
		{-half, 0, -half}, {half, 0, half}, {half, 0, -half},
	}
	node := s.add(mgl64.Vec3{})
	if _, err := physics.AddMeshCollider(node, plume.TypeCollider, floor, s.transforms[node]); err != nil {
		return err
	}

	node = s.add(mgl64.Vec3{0, 1, 0})
	if _, err := physics.AddSphereCollider(node, plume.TypeArea, actor.Sphere{Radius: 2}, s.transforms[node]); err != nil {
		return err
	}

	for i := range 9 {
		node := s.add(mgl64.Vec3{float64(i%3)*2 - 2, 4 + float64(i), float64(i/3)*2 - 2})
		s.movers = append(s.movers, node)

		var err error
		switch i % 3 {
		case 0:
			_, err = physics.AddSphereCollider(node, plume.TypeCollider, actor.Sphere{Radius: 0.5}, s.transforms[node])
		case 1:
			_, err = physics.AddBoxCollider(node, plume.TypeCollider, actor.Box{Dimensions: mgl64.Vec3{1, 1, 1}}, s.transforms[node])
		case 2:
			_, err = physics.AddCapsuleCollider(node, plume.TypeCollider, actor.Capsule{End: mgl64.Vec3{0, 1, 0}, Radius: 0.3}, s.transforms[node])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func tick(s *scene, physics *plume.PhysicsSystem) {
	for _, node := range s.movers {
		s.velocities[node] = s.velocities[node].Add(gravity.Mul(dt))
		result := physics.MoveAndCollide(s, node, s.velocities[node].Mul(dt))
		if result.Grounded {
			s.velocities[node] = mgl64.Vec3{}
		}
	}
}

// pick selects the node under the mouse cursor
func pick(camera rl.Camera3D, physics *plume.PhysicsSystem) plume.NodeID {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), camera)
	origin := mgl64.Vec3{float64(ray.Position.X), float64(ray.Position.Y), float64(ray.Position.Z)}
	direction := mgl64.Vec3{float64(ray.Direction.X), float64(ray.Direction.Y), float64(ray.Direction.Z)}

	hit, ok := physics.Raycast(origin, direction, 1000, 0xFFFF, plume.ColliderTag{Shape: plume.ShapeNone})
	if !ok {
		return plume.NoNode
	}
	slog.Info("picked", "node", hit.Node, "tag", hit.Tag, "distance", hit.Distance)
	return hit.Node
}

func toVector3(v mgl64.Vec3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X()), Y: float32(v.Y()), Z: float32(v.Z())}
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
