package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowmesh/taskgraph"
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Print the diamond example graph as Graphviz DOT",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, _ := buildDiamond()
		fmt.Println(taskgraph.DOT(sink.Edges()))
		return nil
	},
}
