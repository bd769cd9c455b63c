package main

import (
	"fmt"
	"nessql/cmd"
	"nessql/config"
	"nessql/logger"
	"os"
)

func main() {
	cfgPaths := config.GetDefaultConfigPaths()
	if err := logger.InitGlobalLoggers(cfgPaths.LogPathApp, cfgPaths.LogPathAccess, cfgPaths.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize default global loggers: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseLogFiles()

	defer func() {
		if r := recover(); r != nil {
			logger.Fatal("Panic recovered in main: %v", r)
		}
	}()

	cmd.Execute()
}
