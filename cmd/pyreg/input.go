package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// getSource determines what code is to be executed. There are three
// possibilities:
//  1. --code <code>
//  2. --stdin (read code from stdin)
//  3. path as args[0]
//
// The filename is empty unless the code came from a file.
func getSource(cmd *cobra.Command, args []string) (source, filename string, err error) {
	var codeFlagSet bool
	if f := cmd.Flags().Lookup("code"); f != nil && f.Changed {
		codeFlagSet = true
	}
	var stdinFlagSet bool
	if f := cmd.Flags().Lookup("stdin"); f != nil && f.Changed {
		stdinFlagSet = true
	}
	pathSupplied := len(args) > 0
	if (pathSupplied && (codeFlagSet || stdinFlagSet)) || (codeFlagSet && stdinFlagSet) {
		return "", "", errors.New("multiple input sources specified")
	}
	switch {
	case stdinFlagSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return string(data), "", nil
	case pathSupplied:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	case codeFlagSet:
		code, _ := cmd.Flags().GetString("code")
		return code, "", nil
	}
	return viper.GetString("code"), "", nil
}

// requireSource is getSource for subcommands that cannot run without input.
func requireSource(cmd *cobra.Command, args []string) (string, string, error) {
	source, filename, err := getSource(cmd, args)
	if err != nil {
		return "", "", err
	}
	if filename == "" && !cmd.Flags().Changed("code") && !cmd.Flags().Changed("stdin") {
		return "", "", errors.New("no input provided")
	}
	return source, filename, nil
}
