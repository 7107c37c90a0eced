package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ristrettovm/ristretto/internal/classloader"
	"github.com/ristrettovm/ristretto/internal/verifier"
)

func newVerifyCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <class>",
		Short: "Run the verifier alone and print its diagnostic or trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyClass(cfg, className(args[0]))
		},
	}
}

// verifyClass reads target without attaching a verifier to the class
// loader (unlike run/disasm), so it can drive verifier.New itself and
// report a per-method path/diagnostic breakdown that ClassLoader.ReadClass's
// all-or-nothing error would otherwise hide.
func verifyClass(cfg *config, target string) error {
	log := cfg.logger()

	bootstrap := cfg.bootstrap
	if bootstrap == "" {
		bootstrap = findBootstrapPath()
	}
	cl := classloader.New(nil, log)
	if bootstrap != "" {
		cl.AddArchive(classloader.NewArchiveFromPath(bootstrap))
	}
	dl := classloader.NewDirLoader(cfg.classpath, cl, log)

	cf, err := dl.ReadClass(target)
	if err != nil {
		return fail("reading %s: %w", target, err)
	}
	name, err := cf.ClassName()
	if err != nil {
		return fail("resolving class name: %w", err)
	}

	ctx := verifier.NewClassLoaderContext(dl)
	v := verifier.New(cfg.verifierConfig(), ctx, log)

	failed := 0
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Code == nil {
			continue
		}
		path, err := v.VerifyMethod(cf, name, m)
		label := fmt.Sprintf("%s%s", m.Name, m.Descriptor)
		if err != nil {
			failed++
			fmt.Fprintln(os.Stdout, errorStyle.Render(fmt.Sprintf("FAIL %s", label)))
			fmt.Fprintln(os.Stdout, err.Error())
			continue
		}
		fmt.Fprintln(os.Stdout, goodStyle.Render(fmt.Sprintf("OK   %s  (%s path)", label, path)))
	}

	if failed > 0 {
		return fail("%d method(s) failed verification", failed)
	}
	return nil
}
