package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/l1jgo/draftsman/internal/exchange"
)

func decodeCmd(a *app) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Print the JSON schema of an exchange string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := a.codec.Decode(s)
			if err != nil {
				return err
			}
			sch, err := exchange.ToSchema(doc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(sch)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")
	return cmd
}

func encodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode [json-file|-]",
		Short: "Build an exchange string from its JSON schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sch, err := exchange.ParseSchema([]byte(raw))
			if err != nil {
				return err
			}
			if sch.Blueprint.Version == 0 {
				sch.Blueprint.Version = a.version.Pack()
			}
			doc, err := a.codec.FromSchema(sch)
			if err != nil {
				return err
			}
			s, err := a.codec.Encode(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
}

func inspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file|-]",
		Short: "Summarise an exchange string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := a.codec.Decode(s)
			if err != nil {
				return err
			}
			fp, err := exchange.Fingerprint(doc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSection(w, "Blueprint")
			if doc.Label() != "" {
				printStat(w, "label", doc.Label())
			}
			printStat(w, "version", doc.Version.String())
			printStat(w, "entities", strconv.Itoa(doc.EntityCount()))
			printStat(w, "tiles", strconv.Itoa(doc.TileCount()))
			printStat(w, "fingerprint", fmt.Sprintf("%016x", fp))
			if bb, ok := doc.WorldBoundingBox(); ok {
				printStat(w, "bounds", fmt.Sprintf("(%g, %g) .. (%g, %g)", bb.MinX, bb.MinY, bb.MaxX, bb.MaxY))
			}

			counts := make(map[string]int)
			for _, e := range doc.Flatten() {
				counts[e.Name()]++
			}
			if len(counts) > 0 {
				printSection(w, "Entities")
				names := make([]string, 0, len(counts))
				for n := range counts {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					printStat(w, n, strconv.Itoa(counts[n]))
				}
			}

			if notices := doc.Notices(); len(notices) > 0 {
				printSection(w, "Notices")
				for _, n := range notices {
					fmt.Fprintf(w, "  ! %s\n", n.Notice())
				}
			}
			return nil
		},
	}
}

func printSection(w io.Writer, title string) {
	lineLen := 46 - utf8.RuneCountInString(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Fprintf(w, "── %s %s\n", title, strings.Repeat("─", lineLen))
}

func printStat(w io.Writer, label, value string) {
	dotsLen := 42 - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Fprintf(w, "  %s %s %s\n", label, strings.Repeat("·", dotsLen), value)
}

func printOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "  ✓ %s\n", msg)
}
