package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/noesis/core"
	"github.com/poiesic/noesis/rag"
)

func TestParseEntityFlags(t *testing.T) {
	t.Run("name and type", func(t *testing.T) {
		mentions, err := parseEntityFlags([]string{"Go:technology"})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "go", mentions[0].ID)
		assert.Equal(t, "Go", mentions[0].Name)
		assert.Equal(t, core.EntityTypeTechnology, mentions[0].Type)
	})

	t.Run("type defaults to other", func(t *testing.T) {
		mentions, err := parseEntityFlags([]string{"Ada Lovelace"})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "ada_lovelace", mentions[0].ID)
		assert.Equal(t, core.EntityTypeOther, mentions[0].Type)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := parseEntityFlags([]string{":technology"})
		require.Error(t, err)
	})
}

func TestPrintGraphRetrieval(t *testing.T) {
	retrieval := &rag.GraphRetrieval{
		VectorResults: []*core.RetrievalResult{
			{ID: 1, Score: 0.91, Content: "Go is a programming language.\nSecond line."},
		},
		Entities: []*rag.EntityWithRelated{
			{
				Entity: &core.Entity{ID: "go", Name: "Go", Type: core.EntityTypeTechnology},
				Related: []*core.RelatedEntity{
					{
						Entity:       &core.Entity{ID: "google", Name: "Google", Type: core.EntityTypeOrganization},
						RelationType: "created_by",
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	printGraphRetrieval(&buf, retrieval)

	out := buf.String()
	assert.Contains(t, out, "1. [0.9100] Go is a programming language.")
	assert.NotContains(t, out, "Second line")
	assert.Contains(t, out, "entity Go (technology)")
	assert.Contains(t, out, "-[created_by]-> Google (organization)")
}

func TestPrintResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, nil)
	assert.Equal(t, "no results\n", buf.String())
}

func TestSetupLoggerRejectsInvalidLevel(t *testing.T) {
	app := &cli.App{
		Name: "noesis",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}

	err := app.Run([]string{"noesis", "--log-level", "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	require.NoError(t, app.Run([]string{"noesis", "--log-level", "DEBUG"}))
}
