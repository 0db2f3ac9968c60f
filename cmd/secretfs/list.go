package main

import (
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"

	"github.com/hairyhenderson/go-secretfs/cipher"
	"github.com/hairyhenderson/go-secretfs/internal/daemon"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the secrets that would be served, without mounting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, c := daemon.New(a.cfg, a.log).Build(cmd.Context())
			defer cipher.Destroy(c)
			defer idx.Close()

			a.log.WithField("cipher", c.String()).Info("dry run, not mounting")

			return fsLs(idx, ".", cmd.OutOrStdout())
		},
	}
}

func fsLs(fsys fs.FS, dir string, w io.Writer) error {
	des, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}

	return ls(des, w)
}

func ls(des []fs.DirEntry, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	for _, d := range des {
		fi, err := d.Info()
		if err != nil {
			return err
		}

		sz := ""
		if !fi.IsDir() {
			sz = formatSize(fi.Size())
		}

		mtime := fi.ModTime().Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "%s\t%s\t%s\t %s\n", fi.Mode(), sz, mtime, d.Name())
	}

	return nil
}

func formatSize(size int64) string {
	switch {
	case size <= 1024:
		return fmt.Sprintf("%dB", size)
	case size <= 1024*1024:
		return fmt.Sprintf("%.1fKiB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1fMiB", float64(size)/1024/1024)
	}
}
