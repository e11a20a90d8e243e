package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	geopackage "github.com/tingold/orb-geopackage"
)

func newDecodeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Print the header and WKT of a geometry blob",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := blobInput(file, args)
			if err != nil {
				return err
			}
			return runDecode(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the raw blob from a file instead")
	return cmd
}

func blobInput(file string, args []string) ([]byte, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, errors.New("give either a hex argument or --file, not both")
	case file != "":
		return os.ReadFile(file)
	case len(args) == 1:
		data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[0]), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse hex: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing blob: give a hex argument or --file")
}

func runDecode(w io.Writer, data []byte) error {
	blob, err := geopackage.Decode(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "srs:       %d\n", blob.SRSID())
	fmt.Fprintf(w, "header:    %d bytes, flags 0x%02x\n", blob.HeaderLength(), blob.Flags())
	fmt.Fprintf(w, "empty:     %t\n", blob.Empty())
	fmt.Fprintf(w, "extended:  %t\n", blob.Extended())
	if env := blob.Envelope(); env != nil {
		b := env.Bound()
		fmt.Fprintf(w, "envelope:  %g %g, %g %g\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}
	g := blob.Geometry()
	if g == nil {
		return nil
	}
	fmt.Fprintf(w, "type:      %s\n", g.Type())

	text, err := blob.WKT()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}

func newEncodeCmd() *cobra.Command {
	var (
		srs      int32
		envelope string
	)

	cmd := &cobra.Command{
		Use:   "encode <wkt>",
		Short: "Encode well-known text as a hex geometry blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := parseEnvelopeType(envelope)
			if err != nil {
				return err
			}
			return runEncode(cmd.OutOrStdout(), args[0], srs, et)
		},
	}

	cmd.Flags().Int32Var(&srs, "srs", 4326, "spatial reference system id")
	cmd.Flags().StringVar(&envelope, "envelope", "xy", "envelope to store: none, xy, xyz, xym, xyzm")
	return cmd
}

func parseEnvelopeType(s string) (geopackage.EnvelopeType, error) {
	switch strings.ToLower(s) {
	case "none":
		return geopackage.EnvelopeNone, nil
	case "xy":
		return geopackage.EnvelopeXY, nil
	case "xyz":
		return geopackage.EnvelopeXYZ, nil
	case "xym":
		return geopackage.EnvelopeXYM, nil
	case "xyzm":
		return geopackage.EnvelopeXYZM, nil
	}
	return 0, fmt.Errorf("unknown envelope %q", s)
}

func runEncode(w io.Writer, text string, srs int32, et geopackage.EnvelopeType) error {
	blob, err := geopackage.FromWKT(text, srs)
	if err != nil {
		return err
	}
	if err := blob.SetEnvelopeType(et); err != nil {
		return err
	}
	data, err := blob.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, hex.EncodeToString(data))
	return nil
}
