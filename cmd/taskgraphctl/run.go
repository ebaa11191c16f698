package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/flowmesh/taskgraph"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Schedule the diamond example graph and print its result",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.NewString()
		log := logger.With(zap.String("run_id", runID))

		sink, graph := buildDiamond()

		timer := taskgraph.NewTimer()
		if err := sink.AddListenerAll(timer); err != nil {
			return err
		}

		var exec taskgraph.Executor
		if viper.GetString("executor") == "pool" {
			workers := viper.GetInt("workers")
			pool, err := taskgraph.NewThreadPool(workers, func(i int) {
				log.Debug("worker started", zap.Int("worker", i))
			}, log)
			if err != nil {
				return fmt.Errorf("starting thread pool: %w", err)
			}
			defer pool.Close()
			exec = pool
		} else {
			exec = taskgraph.NewSequential()
		}

		log.Info("scheduling graph", zap.String("graph", graph.Name()), zap.String("executor", exec.Name()))
		if err := sink.ScheduleAllWith(exec); err != nil {
			return fmt.Errorf("scheduling %s: %w", graph.Name(), err)
		}

		v, err := sink.Get()
		if err != nil {
			return fmt.Errorf("result: %w", err)
		}

		fmt.Printf("result: %d\n", v)
		fmt.Printf("sum task avg run time: %dus\n", sink.AvgRunUS())
		return nil
	},
}
