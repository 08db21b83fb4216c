// Command fixxml validates and repairs XML documents against an XSD
// schema: the CLI front end described as an external collaborator, never
// part of the core pipeline's contract.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentflare-ai/xmlschemafix/correction"
	"github.com/agentflare-ai/xmlschemafix/errmodel"
	"github.com/agentflare-ai/xmlschemafix/schema"
	"github.com/agentflare-ai/xmlschemafix/tree"
	"github.com/agentflare-ai/xmlschemafix/validator"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "fix":
		err = runFix(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "fixxml:", err)
		if ee, ok := err.(exitError); ok {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: fixxml <validate|fix|batch> [options] <file...>")
}

// exitError carries a specific process exit code through the error
// return path (spec.md §6.1's binding exit codes).
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

func loadModel(xsdPath string) (*schema.Model, error) {
	data, err := os.ReadFile(xsdPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	model, err := schema.CompileBytes(data, schema.CompileOptions{})
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return model, nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	xsdPath := fs.String("schema", "", "path to the XSD schema")
	reportPath := fs.String("report", "", "write the report to this path instead of stdout")
	format := fs.String("format", "text", "report format: text|json (any other value, including html, renders text)")
	verbose := fs.Bool("verbose", false, "include warnings in the report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *xsdPath == "" {
		usage()
		return exitError{1, "validate requires an <xml> file and --schema"}
	}
	xmlPath := fs.Arg(0)

	model, err := loadModel(*xsdPath)
	if err != nil {
		return exitError{1, err.Error()}
	}
	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return exitError{1, fmt.Sprintf("read xml: %v", err)}
	}

	result := validator.Validate(data, model)
	report := renderReport(result, *format, *verbose)
	if err := writeReport(*reportPath, report); err != nil {
		return exitError{1, err.Error()}
	}

	if !result.Valid {
		return exitError{2, fmt.Sprintf("%s is invalid (%d errors)", xmlPath, len(result.Errors))}
	}
	return nil
}

func runFix(args []string) error {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	xsdPath := fs.String("schema", "", "path to the XSD schema")
	outputPath := fs.String("output", "", "output path (default: <basename>.fixed<ext>)")
	inPlace := fs.Bool("in-place", false, "overwrite the input file")
	backup := fs.Bool("backup", false, "with --in-place, copy the original to <xml>.backup first")
	dryRun := fs.Bool("dry-run", false, "compute the plan but do not write any file")
	reportPath := fs.String("report", "", "write the before/after report to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *xsdPath == "" {
		usage()
		return exitError{1, "fix requires an <xml> file and --schema"}
	}
	xmlPath := fs.Arg(0)

	model, err := loadModel(*xsdPath)
	if err != nil {
		return exitError{1, err.Error()}
	}
	original, err := os.ReadFile(xmlPath)
	if err != nil {
		return exitError{1, fmt.Sprintf("read xml: %v", err)}
	}

	before := validator.Validate(original, model)
	doc, err := tree.Load(original)
	if err != nil {
		return exitError{1, fmt.Sprintf("parse xml: %v", err)}
	}

	plan := correction.Plan(before.Errors, doc, model)
	result := correction.Execute(doc, plan, model, before)

	report := renderFixReport(result)
	if err := writeReport(*reportPath, report); err != nil {
		return exitError{1, err.Error()}
	}

	if !result.Success {
		return exitError{1, fmt.Sprintf("%s could not be fully repaired", xmlPath)}
	}
	if *dryRun || result.NoChangesRequired {
		return nil
	}

	fixed, err := doc.Serialize()
	if err != nil {
		return exitError{1, fmt.Sprintf("serialize result: %v", err)}
	}

	dest := *outputPath
	if dest == "" {
		if *inPlace {
			dest = xmlPath
		} else {
			dest = defaultFixedPath(xmlPath)
		}
	}

	if *inPlace && *backup {
		if err := os.WriteFile(xmlPath+".backup", original, 0o644); err != nil {
			return exitError{1, fmt.Sprintf("write backup: %v", err)}
		}
	}
	if err := os.WriteFile(dest, fixed, 0o644); err != nil {
		return exitError{1, fmt.Sprintf("write output: %v", err)}
	}
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	xsdPath := fs.String("schema", "", "path to the XSD schema")
	outputDir := fs.String("output-dir", "", "directory for fixed files (default: alongside each input)")
	validateOnly := fs.Bool("validate-only", false, "validate without writing any fixed files")
	continueOnError := fs.Bool("continue-on-error", false, "keep processing remaining files after a failure")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *xsdPath == "" {
		usage()
		return exitError{1, "batch requires one or more <file> paths and --schema"}
	}

	model, err := loadModel(*xsdPath)
	if err != nil {
		return exitError{1, err.Error()}
	}

	anyFailed := false
	for _, xmlPath := range fs.Args() {
		if err := batchOne(xmlPath, model, *outputDir, *validateOnly); err != nil {
			anyFailed = true
			fmt.Fprintf(os.Stderr, "fixxml: %s: %v\n", xmlPath, err)
			if !*continueOnError {
				break
			}
		}
	}
	if anyFailed {
		return exitError{1, "one or more files failed"}
	}
	return nil
}

func batchOne(xmlPath string, model *schema.Model, outputDir string, validateOnly bool) error {
	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	before := validator.Validate(data, model)
	if validateOnly {
		if !before.Valid {
			return fmt.Errorf("invalid (%d errors)", len(before.Errors))
		}
		return nil
	}

	doc, err := tree.Load(data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	plan := correction.Plan(before.Errors, doc, model)
	result := correction.Execute(doc, plan, model, before)
	if !result.Success {
		return fmt.Errorf("repair failed")
	}
	if result.NoChangesRequired {
		return nil
	}

	fixed, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	dest := defaultFixedPath(xmlPath)
	if outputDir != "" {
		dest = filepath.Join(outputDir, filepath.Base(defaultFixedPath(xmlPath)))
	}
	return os.WriteFile(dest, fixed, 0o644)
}

func defaultFixedPath(xmlPath string) string {
	ext := filepath.Ext(xmlPath)
	base := strings.TrimSuffix(xmlPath, ext)
	return base + ".fixed" + ext
}

func writeReport(path, report string) error {
	if path == "" {
		fmt.Print(report)
		return nil
	}
	return os.WriteFile(path, []byte(report), 0o644)
}

func renderReport(result errmodel.Result, format string, verbose bool) string {
	if format == "json" {
		return jsonReport(result)
	}
	var b strings.Builder
	if result.Valid {
		fmt.Fprintln(&b, "document is valid")
	} else {
		fmt.Fprintf(&b, "found %d error(s):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  %s\n", e.Error())
		}
	}
	if verbose {
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", w.Error())
		}
	}
	return b.String()
}

func renderFixReport(result correction.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "before: %d error(s)\n", len(result.BeforeValidation.Errors))
	fmt.Fprintf(&b, "applied %d action(s), %d failed\n", result.Applied, result.Failed)
	if result.AfterValidation != nil {
		fmt.Fprintf(&b, "after: %d error(s)\n", len(result.AfterValidation.Errors))
	}
	if result.NoChangesRequired {
		fmt.Fprintln(&b, "no changes required")
	}
	return b.String()
}

func jsonReport(result errmodel.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{\"valid\":%t,\"errors\":%d,\"warnings\":%d}\n",
		result.Valid, len(result.Errors), len(result.Warnings))
	return b.String()
}
