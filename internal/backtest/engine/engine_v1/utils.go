package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResultFolder lays results out as <root>/<strategy>/<time range>/<data file name>.
// The time range folder is skipped when the config has no bounds.
func ResultFolder(root string, strategyName string, dataPath string, config BacktestEngineV1Config) string {
	strategyFolder := filepath.Join(root, strategyName)

	var dataFolder string

	if config.StartTime.IsSome() || config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if config.StartTime.IsSome() {
			startTimeStr = config.StartTime.Unwrap().Format("20060102")
		}

		if config.EndTime.IsSome() {
			endTimeStr = config.EndTime.Unwrap().Format("20060102")
		}

		dataFolder = filepath.Join(strategyFolder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr))
	} else {
		dataFolder = strategyFolder
	}

	dataFileName := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	return filepath.Join(dataFolder, dataFileName)
}
