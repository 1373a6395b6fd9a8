package main

import (
	"fmt"

	"github.com/spf13/cobra"

	scidata "github.com/scidatacontainer/scidata-go"
	"github.com/scidatacontainer/scidata-go/archive"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)

	convertCmd.Flags().StringVarP(&flagFormat, "format", "f", archive.FormatZip, "target archive format (zip or hdf5)")
	convertCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default: input file)")
	downloadCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default: <uuid>.zdc)")
}

var (
	flagFormat string
	flagOutput string
)

func read(name string, opts ...scidata.Option) (*scidata.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return scidata.ReadFile(name, append([]scidata.Option{scidata.WithConfig(cfg)}, opts...)...)
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "print the metadata summary of a container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dc)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "verify the stored hash of a container file",
	Long:  "verify loads a container file; loading recomputes and checks a stored hash.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", dc.UUID())
		return nil
	},
}

var freezeCmd = &cobra.Command{
	Use:   "freeze <file>",
	Short: "mark a container static and seal it with its hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		if err := dc.Freeze(); err != nil {
			return err
		}
		return dc.WriteFile(args[0])
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <file>",
	Short: "derive a new mutable dataset from a finished container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		if err := dc.Release(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dc.UUID())
		return dc.WriteFile(args[0])
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "rewrite a container file in another archive format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		if err := dc.SetFormat(flagFormat); err != nil {
			return err
		}
		out := flagOutput
		if out == "" {
			out = args[0]
		}
		return dc.WriteFile(out)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "upload a container file to the catalog server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := read(args[0])
		if err != nil {
			return err
		}
		if err := dc.Upload(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dc.UUID())
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <uuid>",
	Short: "download a container from the catalog server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dc, err := scidata.Download(cmd.Context(), args[0], scidata.WithConfig(cfg))
		if err != nil {
			return err
		}
		out := flagOutput
		if out == "" {
			out = dc.UUID() + ".zdc"
		}
		return dc.WriteFile(out)
	},
}
