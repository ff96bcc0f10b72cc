package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-roulette/pkg/geom"
	"github.com/teslashibe/go-roulette/pkg/physics"
)

type simulateOptions struct {
	angleDeg   float64
	velocity   float64
	radius     float64
	confidence float64
	asJSON     bool
}

func newSimulateCmd(a *app) *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Predict the resting pocket for a given ball state",
		Long:  "simulate runs the landing simulator on a ball angle and angular velocity, using the physics settings from the configuration.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			sim, err := physics.NewSimulator(cfg.Session.PhysicsParams())
			if err != nil {
				return err
			}

			pred, ok := sim.Simulate(physics.Input{
				Angle:               geom.Radians(opts.angleDeg),
				Velocity:            opts.velocity,
				HasVelocity:         true,
				Radius:              opts.radius,
				DetectionConfidence: opts.confidence,
				Timestamp:           time.Now(),
			})
			if !ok {
				return errors.New("no prediction: velocity must be finite and radius positive")
			}
			return writePrediction(cmd, pred, opts.asJSON)
		},
	}

	cmd.Flags().Float64Var(&opts.angleDeg, "angle", 0, "ball angle in degrees from the image +x axis, clockwise on screen")
	cmd.Flags().Float64Var(&opts.velocity, "velocity", 0, "ball angular velocity in rad/s")
	cmd.Flags().Float64Var(&opts.radius, "radius", 200, "wheel radius in pixels")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", 1, "detection confidence of the observation (0-1)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the prediction as JSON")
	_ = cmd.MarkFlagRequired("velocity")

	return cmd
}

func writePrediction(cmd *cobra.Command, p physics.Prediction, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "pocket %d (%s) confidence %.2f after %d steps (%s)\n",
		p.Pocket, p.Color, p.Confidence, p.SimulatedSteps, p.TravelTime)
	if err == nil && p.Capped {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "warning: simulation hit the step limit before the ball stopped")
	}
	return err
}
