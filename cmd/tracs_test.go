package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pavement-cli/internal/config"
)

const testSurveyCSV = "link_section,lane,chainage_start,chainage_end,rutting,texture\n" +
	"L1,CL1,0,10,12,0.5\n" +
	"L1,CL2,0,10,9,0.4\n" +
	"L2,CL1,0,10,18,0.7\n"

func TestRunTRACS(t *testing.T) {
	useConfig(t)
	file := writeTestFile(t, "survey.csv", testSurveyCSV)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runTRACS(context.Background(), tracsOptions{file: file, link: "L1"}, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "L1,CL1,0,10,12,0.5", lines[1])
	assert.Empty(t, stderr.String())
}

func TestRunTRACS_ConfiguredCriteria(t *testing.T) {
	useConfig(t, func(c *config.Config) { c.Tracs.MaxRutting = 15 })
	file := writeTestFile(t, "survey.csv", testSurveyCSV)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runTRACS(context.Background(), tracsOptions{file: file}, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "L2,"))
}

func TestRunTRACS_NoneFailing(t *testing.T) {
	useConfig(t)
	file := writeTestFile(t, "survey.csv", testSurveyCSV)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runTRACS(context.Background(), tracsOptions{file: file, link: "L3"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "No failing sections found")
	assert.Equal(t, "link_section,lane,chainage_start,chainage_end,rutting,texture\n", stdout.String())
}

func TestRunTRACS_Errors(t *testing.T) {
	useConfig(t)
	var stdout, stderr bytes.Buffer

	err := runTRACS(context.Background(), tracsOptions{}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file is required")

	file := writeTestFile(t, "survey.csv", "link_section,rutting\nL1,12\n")
	err = runTRACS(context.Background(), tracsOptions{file: file}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}
