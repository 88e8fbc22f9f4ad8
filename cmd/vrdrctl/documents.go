package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// errDangling is returned by validate so the process exits non-zero.
var errDangling = errors.New("bundle has unresolved references")

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a death certificate document from wizard answers and a decedent Patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			recordPath, _ := cmd.Flags().GetString("record")
			patientPath, _ := cmd.Flags().GetString("patient")
			outPath, _ := cmd.Flags().GetString("out")
			tz, _ := cmd.Flags().GetString("timezone")

			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}

			var rec record.Record
			if err := readJSON(recordPath, &rec); err != nil {
				return err
			}
			var patient *r4.Patient
			if patientPath != "" {
				patient = &r4.Patient{}
				if err := readJSON(patientPath, patient); err != nil {
					return err
				}
			}

			assembler := document.NewAssembler(document.Config{IDs: document.UUIDGenerator{}, Location: loc}, nil)
			built, err := record.NewBuilder(record.NewMapper(loc), assembler).Build(&rec, patient)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(built.Bundle, "", "  ")
			if err != nil {
				return fmt.Errorf("encode bundle: %w", err)
			}
			if outPath == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote document %s (fingerprint %s) to %s\n", built.Bundle.ID, built.Fingerprint, outPath)
			return nil
		},
	}
	cmd.Flags().String("record", "", "Path to the wizard answers JSON")
	cmd.Flags().String("patient", "", "Path to the decedent FHIR Patient JSON")
	cmd.Flags().String("out", "", "Write the bundle here instead of stdout")
	cmd.Flags().String("timezone", "UTC", "IANA zone death dates and times are recorded in")
	cmd.MarkFlagRequired("record")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle.json>",
		Short: "Report references that do not resolve to an entry of the bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dangling, err := r4.CheckReferences(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(dangling) == 0 {
				fmt.Fprintln(out, "all references resolve")
				return nil
			}
			for _, d := range dangling {
				fmt.Fprintln(out, d.String())
			}
			return fmt.Errorf("%w: %d", errDangling, len(dangling))
		},
	}
}

func valueSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "valuesets",
		Short: "List the value sets answers are translated through",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(valueset.CatalogBundle(), "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCODES\tURL")
			for _, vs := range valueset.Catalog() {
				n := 0
				if vs.Compose != nil {
					for _, inc := range vs.Compose.Include {
						n += len(inc.Concept)
					}
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", vs.Name, n, vs.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print the catalog as a FHIR collection bundle")
	return cmd
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
