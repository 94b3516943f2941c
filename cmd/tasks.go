package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/seo-cli/internal/taskcfg"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the loaded stage definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := taskcfg.Load(cfg.Tasks.Dir)
		if err != nil {
			return eris.Wrap(err, "tasks: load definitions")
		}
		for _, name := range tasks.Names() {
			task := tasks.Get(name)
			fmt.Printf("%-20s max_tokens=%-5d json=%-5t rules=%d\n",
				name, task.MaxTokens, task.RequireJSON, len(task.ValidationRules))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
