package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *GenerateCmdTestSuite) TestGenerateWritesSchemaAndSample() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(generate(dir))

	schema, err := os.ReadFile(filepath.Join(dir, schemaName))
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal(schema, &decoded))
	suite.Equal("backtest-config", decoded["title"])

	sample, err := os.ReadFile(filepath.Join(dir, sampleConfigName))
	suite.Require().NoError(err)
	suite.Contains(string(sample), getSchemaReference(schemaName))
}

func (suite *GenerateCmdTestSuite) TestSampleConfigLoadsAndValidates() {
	suite.Require().NoError(generate(suite.tempDir))

	config, err := types.LoadBacktestConfig(filepath.Join(suite.tempDir, sampleConfigName))
	suite.Require().NoError(err)
	suite.NoError(config.Validate())
	suite.Equal(sampleConfig().InitialCapital.String(), config.InitialCapital.String())
	suite.Equal(types.StrategyTypeMomentum, config.Strategy.Type)
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	samplePath := filepath.Join(suite.tempDir, sampleConfigName)
	suite.Require().NoError(os.WriteFile(samplePath, []byte("existing content"), 0644))

	suite.Require().NoError(generate(suite.tempDir))

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("existing content", string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFileIntoFileFails() {
	blocker := filepath.Join(suite.tempDir, "blocker")
	suite.Require().NoError(os.WriteFile(blocker, []byte("x"), 0644))

	err := generateSchemaFile(types.DefaultBacktestConfig(), filepath.Join(blocker, "schema.json"))
	suite.Error(err)
	suite.Contains(err.Error(), "failed to")
}

func (suite *GenerateCmdTestSuite) TestValidatePaths() {
	suite.NoError(validatePaths("/some/path/schema.json", "/some/path/config.yaml"))

	err := validatePaths("", "/some/path/config.yaml")
	suite.ErrorContains(err, "schema path cannot be empty")

	err = validatePaths("/some/path/schema.json", "")
	suite.ErrorContains(err, "sample config path cannot be empty")
}

func (suite *GenerateCmdTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=test-schema.json\n", getSchemaReference("test-schema.json"))
}
