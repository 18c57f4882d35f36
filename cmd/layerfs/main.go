package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/absfs/layerfs"
)

var (
	configPath string
	mountSpecs []string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "layerfs",
		Short: "Inspect a composite filesystem view",
		Long: `layerfs presents the host filesystem with backend filesystems (zip
archives, host directories, in-memory filesystems) mounted onto sub-trees,
and lets you list and read the composite view.

Example:
  layerfs --mount /data=zip:content.zip ls /data
  layerfs --config mounts.yaml cat /data/notes.txt`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML mount table file")
	rootCmd.PersistentFlags().StringArrayVar(&mountSpecs, "mount", nil,
		"mount spec point=type:source (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(lsCmd(), catCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

// buildFS assembles the composite filesystem from the config file and any
// --mount flags, in that order.
func buildFS() (*layerfs.LayerFS, error) {
	cfg := &layerfs.Config{}
	if configPath != "" {
		loaded, err := layerfs.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, spec := range mountSpecs {
		m, err := parseMountSpec(spec)
		if err != nil {
			return nil, err
		}
		cfg.Mounts = append(cfg.Mounts, m)
	}
	base := layerfs.NewAferoBackend(afero.NewOsFs())
	return cfg.Build(base, layerfs.WithLogger(slog.Default()))
}

// parseMountSpec parses "point=type:source" ("point=type" for sourceless
// backends like memory).
func parseMountSpec(spec string) (layerfs.MountConfig, error) {
	point, rest, ok := strings.Cut(spec, "=")
	if !ok || point == "" {
		return layerfs.MountConfig{}, fmt.Errorf("invalid mount spec %q (want point=type:source)", spec)
	}
	typ, source, _ := strings.Cut(rest, ":")
	if typ == "" {
		return layerfs.MountConfig{}, fmt.Errorf("invalid mount spec %q: missing type", spec)
	}
	return layerfs.MountConfig{Point: point, Type: typ, Source: source}, nil
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List a directory in the composite view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lfs, err := buildFS()
			if err != nil {
				return err
			}
			p, err := lfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			if err := lfs.CheckAccess(p, layerfs.AccessRead); err != nil {
				return err
			}
			stream, err := lfs.NewDirectoryStream(p, nil)
			if err != nil {
				return err
			}
			defer stream.Close()

			for {
				entry, err := stream.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				attrs, err := lfs.ReadAttributes(entry, "basic")
				if err != nil {
					slog.Warn("skipping entry", "path", entry.String(), "err", err)
					continue
				}
				kind := "file"
				size := ""
				if isDir, _ := attrs["isDirectory"].(bool); isDir {
					kind = "dir"
				} else if n, ok := attrs["size"].(int64); ok {
					size = humanize.Bytes(uint64(n))
				}
				fmt.Printf("%-4s %8s  %s\n", kind, size, entry.String())
			}
		},
	}
}

func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file from the composite view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lfs, err := buildFS()
			if err != nil {
				return err
			}
			p, err := lfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			ch, err := lfs.NewByteChannel(p, os.O_RDONLY, 0)
			if err != nil {
				return err
			}
			defer ch.Close()
			_, err = io.Copy(os.Stdout, ch)
			return err
		},
	}
}
