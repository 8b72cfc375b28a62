// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expertbridge/postrec/internal/post"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const defaultImportBatch = 100

func newAddCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Index a single post",
		Long:  "Embed the post content and insert it into the index, replacing any post with the same uuid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, v, args[0])
		},
	}

	cmd.Flags().String("uuid", "", "post identifier (generated when empty)")
	cmd.Flags().String("title", "", "post title")
	cmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	cmd.Flags().String("language", "", "language code, e.g. en")
	cmd.Flags().String("created-at", "", "creation time in RFC 3339 (defaults to now)")

	return cmd
}

func runAdd(cmd *cobra.Command, v *viper.Viper, content string) error {
	flags := cmd.Flags()
	id, _ := flags.GetString("uuid")
	title, _ := flags.GetString("title")
	tags := tagsFlag(cmd)
	language, _ := flags.GetString("language")
	createdRaw, _ := flags.GetString("created-at")

	createdAt := time.Now().UTC()
	if createdRaw != "" {
		t, err := time.Parse(time.RFC3339, createdRaw)
		if err != nil {
			return recerr.Errorf(recerr.CodeCLIInputInvalid, "parsing --created-at: %w", err)
		}
		createdAt = t
	}
	if id == "" {
		id = uuid.NewString()
	}

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	app, err := Wire(cfg)
	if err != nil {
		return err
	}

	addErr := app.Recommender.AddPost(cmd.Context(), post.Post{
		UUID:      id,
		Title:     title,
		Content:   content,
		Tags:      tags,
		Language:  language,
		CreatedAt: createdAt,
	})
	if err := errors.Join(addErr, app.Close()); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added post %s\n", id)
	return nil
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Index posts from a YAML or JSON file",
		Long: "Read a list of posts (or a mapping with a \"posts\" list) and index them in batches.\n" +
			"Each batch is embedded with one provider call and written atomically.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, v, args[0])
		},
	}

	cmd.Flags().Int("batch-size", defaultImportBatch, "posts per embedding call and index write")

	return cmd
}

func runImport(cmd *cobra.Command, v *viper.Viper, path string) error {
	batch, _ := cmd.Flags().GetInt("batch-size")
	if batch <= 0 {
		return recerr.Errorf(recerr.CodeCLIInputInvalid, "--batch-size must be positive (got %d)", batch)
	}

	posts, err := post.LoadFile(path, time.Now().UTC())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	app, err := Wire(cfg)
	if err != nil {
		return err
	}

	imported := 0
	var importErr error
	for start := 0; start < len(posts); start += batch {
		end := min(start+batch, len(posts))
		if importErr = app.Recommender.AddPosts(cmd.Context(), posts[start:end]); importErr != nil {
			importErr = recerr.With(importErr, recerr.Field("batch_start", start))
			break
		}
		imported = end
	}
	if err := errors.Join(importErr, app.Close()); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d of %d posts before failing\n", imported, len(posts))
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d posts from %s\n", imported, path)
	return nil
}

// tagsFlag reads the comma-separated --tags flag, trimming the space
// around each entry and dropping empty ones.
func tagsFlag(cmd *cobra.Command) []string {
	raw, _ := cmd.Flags().GetStringSlice("tags")
	var tags []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
