package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phoenixrt/phostdio/internal/config"
	glog "github.com/phoenixrt/phostdio/internal/log"
	"github.com/phoenixrt/phostdio/internal/ui/style"
	"github.com/phoenixrt/phostdio/stdio"
	"github.com/phoenixrt/phostdio/stdio/spec"
	"github.com/phoenixrt/phostdio/symtab"
)

var (
	verbose    bool
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "phostdio",
		Short: "Exercise the Phoenix stream I/O runtime from the command line",
		Long: `Phostdio hosts the Phoenix C library's buffered stream layer as a Go
runtime: a fixed stream table over a descriptor table, with pipes, an
in-memory file namespace, and the printf/scanf format engine.

The subcommands drive that runtime directly, which makes them handy for
poking at buffering, pipe, and format-engine behavior without writing a
program against the API.

Examples:
  phostdio symbols            # List the registered C symbol surface
  phostdio symbols 'f*'       # Only symbols matching a pattern
  phostdio format '%08x' 255  # Run the printf engine on one directive
  phostdio pipe 'hello'       # Push a message through a pipe pair`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "runtime config file (YAML)")

	rootCmd.AddCommand(symbolsCmd(), formatCmd(), scanCmd(), pipeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.Error(err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	glog.Init(verbose)
	// I/O trace events flow through the symbol registry so anything watching
	// the registry sees stream activity alongside direct symbol calls.
	glog.L.SetOnTrace(symtab.DefaultRegistry.Call)
	if verbose {
		symtab.DefaultRegistry.OnCall = func(category, name, detail string) {
			fmt.Fprintf(os.Stderr, "%s %s %s\n",
				style.Detail(category), style.Symbol(name), style.Detail(detail))
		}
	}
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func symbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols [pattern]",
		Short: "List the registered C symbol surface",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := symtab.DefaultRegistry.Names()
			if len(args) == 1 {
				names = symtab.DefaultRegistry.Match(args[0])
			}
			byCat := make(map[string][]string)
			for _, name := range names {
				d, _ := symtab.Lookup(name)
				byCat[d.Category] = append(byCat[d.Category], name)
			}
			for cat, syms := range byCat {
				fmt.Println(style.Heading(cat))
				for _, s := range syms {
					fmt.Printf("  %s\n", style.Symbol(s))
				}
			}
			fmt.Println(style.Detail(fmt.Sprintf("%d definitions, %d names",
				symtab.DefaultRegistry.Count(), len(names))))
			return nil
		},
	}
}

// parseArg guesses the value type for a format-engine argument: integer,
// float, then string.
func parseArg(s string) any {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return int(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <format> [args...]",
		Short: "Run the printf engine on a format string",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fargs := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				fargs = append(fargs, parseArg(a))
			}
			out, err := stdio.Sprintf(args[0], fargs...)
			if err != nil {
				return fmt.Errorf("format %q: %w", args[0], err)
			}
			fmt.Printf("%s%s\n", out, style.Detail(fmt.Sprintf(" (%d bytes)", len(out))))
			return nil
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <format> <input>",
		Short: "Run the scanf engine on an input string",
		Long: `Scan parses the input with the given format and prints each completed
assignment. Conversions are scanned into generic slots, so any number of
directives works.

Example:
  phostdio scan '%d-%d %s' '10-20 rest'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, input := args[0], args[1]
			ptrs, err := scanSlots(format)
			if err != nil {
				return fmt.Errorf("scan %q: %w", format, err)
			}
			n, err := stdio.Sscanf(input, format, ptrs...)
			if err != nil && n == 0 {
				return fmt.Errorf("scan %q: %w", format, err)
			}
			fmt.Println(style.OK(fmt.Sprintf("%d assignments", n)))
			for i := 0; i < n && i < len(ptrs); i++ {
				fmt.Printf("  %%%d = %v\n", i+1, deref(ptrs[i]))
			}
			return nil
		},
	}
}

// scanSlots walks the format and allocates a destination of the right shape
// for each assigning directive.
func scanSlots(format string) ([]any, error) {
	var ptrs []any
	for i := 0; i < len(format); {
		if format[i] != '%' {
			i++
			continue
		}
		i++
		suppress := false
		if i < len(format) && format[i] == '*' {
			suppress = true
			i++
		}
		sp, j, err := spec.Parse(format, i)
		if err != nil {
			return nil, err
		}
		i = j
		if suppress {
			continue
		}
		switch sp.Kind {
		case spec.Int, spec.Pointer, spec.Count:
			ptrs = append(ptrs, new(int))
		case spec.Float:
			ptrs = append(ptrs, new(float64))
		case spec.String, spec.Scanset:
			ptrs = append(ptrs, new(string))
		case spec.Char:
			if sp.Size == spec.SizeLong {
				ptrs = append(ptrs, new(rune))
			} else {
				ptrs = append(ptrs, new(string))
			}
		}
	}
	return ptrs, nil
}

func deref(p any) any {
	switch v := p.(type) {
	case *int:
		return *v
	case *float64:
		return *v
	case *string:
		return *v
	case *rune:
		return string(*v)
	}
	return p
}

func pipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipe <message>",
		Short: "Push a message through a pipe pair of streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt := stdio.New(cfg)
			r, w, err := rt.Pipe()
			if err != nil {
				return err
			}
			if _, err := w.Printf("%s\n", args[0]); err != nil {
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			var line []byte
			n, err := r.GetLine(&line)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s", style.OK("received:"), line[:n])
			fmt.Println(style.Detail(fmt.Sprintf("reader fd=%d writer fd=%d", r.Fileno(), w.Fileno())))
			return r.Close()
		},
	}
}
