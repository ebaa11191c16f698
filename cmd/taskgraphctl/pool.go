package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowmesh/taskgraph"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Demonstrate Pool[T] growth and reclaim accounting",
	RunE: func(cmd *cobra.Command, args []string) error {
		template := taskgraph.Root(func() (int, error) { return 1, nil })

		pool, err := taskgraph.NewPoolWithLogger(template, viper.GetInt("pool-min"), viper.GetInt("pool-max"), logger)
		if err != nil {
			return fmt.Errorf("creating pool: %w", err)
		}
		fmt.Printf("warm: size=%d idle=%d busy=%d\n", pool.Size(), pool.IdleCount(), pool.BusyCount())

		clone, err := pool.NextTask(true)
		if err != nil {
			return fmt.Errorf("next task: %w", err)
		}
		if err := clone.Schedule(); err != nil {
			return fmt.Errorf("scheduling clone: %w", err)
		}
		fmt.Printf("after one run: size=%d idle=%d busy=%d tag=%s\n", pool.Size(), pool.IdleCount(), pool.BusyCount(), clone.Tag())

		pool.Reclaim()
		fmt.Printf("after reclaim: size=%d idle=%d busy=%d\n", pool.Size(), pool.IdleCount(), pool.BusyCount())
		return nil
	},
}
