package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
)

func infoCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Report the GPU device and check the kernel",
		Action: func(c *cli.Context) error {
			proc, err := newProcessor(cfg)
			if err != nil {
				return err
			}
			defer proc.Close()

			w := c.App.Writer
			fmt.Fprintf(w, "kernel:      %s (entry point %s)\n", orNone(proc.KernelName()), trscan.EntryPoint)
			if words, err := proc.CompileKernel(); err != nil {
				fmt.Fprintf(w, "spir-v:      %v\n", err)
			} else {
				fmt.Fprintf(w, "spir-v:      %d words\n", words)
			}

			info, err := proc.Probe(c.Context)
			if err != nil {
				fmt.Fprintf(w, "device:      unavailable (%s)\n", trscan.KindOf(err))
				return err
			}
			fmt.Fprintf(w, "backend:     %s\n", info.Backend)
			fmt.Fprintf(w, "adapter:     %s\n", info.Adapter)
			fmt.Fprintf(w, "dispatch:    %d elements/thread, workgroup %d, max input %d bytes\n",
				trscan.ElementsPerThread, trscan.WorkgroupSize, trscan.MaxInputSize)
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
