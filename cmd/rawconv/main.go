package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ieee0824/fujisakiest-go/dataio"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

var (
	fsFile  string
	lf0File string
	vuvFile string
	mupFile string
	muaFile string
	mubFile string
	outFile string
)

var rootCmd = &cobra.Command{
	Use:          "rawconv",
	Short:        "Convert plain-text vectors to estimator data files",
	SilenceUsage: true,
}

var inputCmd = &cobra.Command{
	Use:   "input",
	Short: "Build an input file from fs, lf0, vuv, mup, mua and mub vectors",
	RunE:  runInput,
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Build a command file from mup and mua amplitude trajectories",
	RunE:  runCommands,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&fsFile, "fs", "f", "fs.txt", "sampling rate file")
	f.StringVarP(&lf0File, "lf0", "l", "lf0.txt", "log F0 file")
	f.StringVarP(&vuvFile, "vuv", "v", "vuv.txt", "voicing file")
	f.StringVarP(&mupFile, "mup", "p", "mup.txt", "phrase amplitude file")
	f.StringVarP(&muaFile, "mua", "a", "mua.txt", "accent amplitude file")
	f.StringVarP(&mubFile, "mub", "b", "mub.txt", "baseline file")
	f.StringVarP(&outFile, "out", "o", "out.json", "output file (.json or .yaml)")

	rootCmd.AddCommand(inputCmd)
	rootCmd.AddCommand(commandsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInput(cmd *cobra.Command, args []string) error {
	fs, err := dataio.ReadScalarFile(fsFile)
	if err != nil {
		return err
	}
	mub, err := dataio.ReadScalarFile(mubFile)
	if err != nil {
		return err
	}
	vecs := make([][]float64, 4)
	for i, path := range []string{lf0File, vuvFile, mupFile, muaFile} {
		if vecs[i], err = dataio.ReadVectorFile(path); err != nil {
			return err
		}
	}
	in, err := dataio.InputFromVectors(fs, vecs[0], vecs[1], vecs[2], vecs[3], mub)
	if err != nil {
		return err
	}
	if err := dataio.WriteFile(outFile, in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", len(in.LogF0), outFile)
	return nil
}

func runCommands(cmd *cobra.Command, args []string) error {
	fs, err := dataio.ReadScalarFile(fsFile)
	if err != nil {
		return err
	}
	mup, err := dataio.ReadVectorFile(mupFile)
	if err != nil {
		return err
	}
	mua, err := dataio.ReadVectorFile(muaFile)
	if err != nil {
		return err
	}
	cmds, err := fujisaki.CommandsFromTrajectories(mup, mua, fs)
	if err != nil {
		return err
	}
	if err := dataio.WriteFile(outFile, cmds); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d commands to %s\n", len(cmds), outFile)
	return nil
}
