// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expertbridge/postrec/internal/recommend"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newRecommendCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend posts for a query or tag set",
		Long: "Embed the query (or, without one, a sentence built from --tags) and list the closest posts.\n" +
			"--tags also restricts results to posts carrying at least one of the tags.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, v, args)
		},
	}

	cmd.Flags().StringSlice("tags", nil, "comma-separated tags to filter on")
	cmd.Flags().String("language", "", "only return posts in this language")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of results (0 uses recommend.default_limit)")
	cmd.Flags().Bool("json", false, "print results as JSON")

	return cmd
}

func runRecommend(cmd *cobra.Command, v *viper.Viper, args []string) error {
	flags := cmd.Flags()
	req := recommend.Request{}
	if len(args) == 1 {
		req.Query = args[0]
	}
	req.Tags = tagsFlag(cmd)
	req.Language, _ = flags.GetString("language")
	req.Limit, _ = flags.GetInt("limit")
	asJSON, _ := flags.GetBool("json")

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	app, err := Wire(cfg)
	if err != nil {
		return err
	}

	results, recErr := app.Recommender.RecommendScored(cmd.Context(), req)
	if err := errors.Join(recErr, app.Close()); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return renderResults(cmd.OutOrStdout(), results)
}

func renderResults(w io.Writer, results []recommend.Scored) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No matching posts.")
		return err
	}

	for i, r := range results {
		title := r.Post.Title
		if title == "" {
			title = r.Post.UUID
		}
		tags := make([]string, len(r.Post.Tags))
		for j, t := range r.Post.Tags {
			tags[j] = tagStyle.Render("#" + t)
		}

		_, err := fmt.Fprintf(w, "%2d. %s %s\n    %s\n    %s\n",
			i+1,
			titleStyle.Render(title),
			dimStyle.Render(fmt.Sprintf("(%.4f)", r.Distance)),
			excerpt(r.Post.Content, 120),
			strings.TrimSpace(strings.Join(tags, " ")+" "+dimStyle.Render(r.Post.UUID)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// excerpt shortens s to at most n runes on a single line.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
