package main

import (
	"github.com/spf13/cobra"
)

var indexDir string

var rootCmd = &cobra.Command{
	Use:   "chronoidx",
	Short: "Build and verify temporal-aware text search indexes",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&indexDir, "index-dir", "", "root directory the index variants are built into (required)")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(verifyCmd)
}
