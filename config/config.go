// Package config reads the library metadata table that drives a pipeline
// run: one row per sequenced library naming its protocol, alignment file,
// fragment size statistics, the caller outputs to convert, and the
// libraries to pair against.
//
// The table is hand-written, so unlike machine-produced pair files its
// header is checked both ways: every standard column must be present and
// unknown columns are rejected, with a spelling suggestion when one is
// close to a standard name.
package config

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/util"
)

// Library describes one sequenced library and its evidence inputs.
type Library struct {
	Name     string
	Protocol breakpoint.Protocol
	// BAMFile is the coordinate-sorted, indexed alignment file.
	BAMFile    string
	ReadLength int
	// MedianFragmentSize and StdevFragmentSize summarize the library's
	// fragment size distribution, which sizes evidence windows and
	// flanking calls.
	MedianFragmentSize int
	StdevFragmentSize  int
	// StrandedBAM marks strand-specific sequencing.
	StrandedBAM bool
	// Inputs lists the caller output files to convert for this library.
	// Pairing names the libraries whose calls pair against this one.
	Inputs  []string
	Pairing []string
}

// Validate checks the fields every pipeline stage relies on.
func (l Library) Validate() error {
	if l.Name == "" {
		return errors.New("config: library name is empty")
	}
	if l.BAMFile == "" {
		return errors.Errorf("config: library %s has no bam_file", l.Name)
	}
	if l.ReadLength < 1 {
		return errors.Errorf("config: library %s read_length %d is not positive", l.Name, l.ReadLength)
	}
	if l.MedianFragmentSize < 1 {
		return errors.Errorf("config: library %s median_fragment_size %d is not positive", l.Name, l.MedianFragmentSize)
	}
	if l.StdevFragmentSize < 0 {
		return errors.Errorf("config: library %s stdev_fragment_size %d is negative", l.Name, l.StdevFragmentSize)
	}
	return nil
}

type libraryRow struct {
	Name        string `tsv:"library"`
	Protocol    string `tsv:"protocol"`
	BAMFile     string `tsv:"bam_file"`
	ReadLength  int    `tsv:"read_length"`
	MedianFrag  int    `tsv:"median_fragment_size"`
	StdevFrag   int    `tsv:"stdev_fragment_size"`
	StrandedBAM string `tsv:"stranded_bam"`
	Inputs      string `tsv:"inputs"`
	Pairing     string `tsv:"pairing"`
}

var libraryColumns = func() []string {
	typ := reflect.TypeOf(libraryRow{})
	cols := make([]string, typ.NumField())
	for i := range cols {
		cols[i] = typ.Field(i).Tag.Get("tsv")
	}
	return cols
}()

// splitList splits a semicolon-separated cell, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// headerLine splits off the first line and returns a reader replaying the
// full stream.
func headerLine(in io.Reader) (string, io.Reader, error) {
	br := bufio.NewReader(in)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	return line, io.MultiReader(strings.NewReader(line), br), nil
}

func checkHeader(header string) error {
	header = strings.TrimRight(header, "\r\n")
	if header == "" {
		return errors.New("config: empty library table")
	}
	known := make(map[string]bool, len(libraryColumns))
	for _, col := range libraryColumns {
		known[col] = true
	}
	present := make(map[string]bool)
	for _, col := range strings.Split(header, "\t") {
		if !known[col] {
			msg := fmt.Sprintf("config: unrecognized column %q", col)
			if hint := util.DidYouMean(col, libraryColumns, 2); hint != "" {
				msg += "; " + hint
			}
			return errors.New(msg)
		}
		present[col] = true
	}
	for _, col := range libraryColumns {
		if !present[col] {
			return errors.Errorf("config: missing column %s", col)
		}
	}
	return nil
}

func libraryFromRow(row libraryRow) (Library, error) {
	lib := Library{
		Name:               row.Name,
		BAMFile:            row.BAMFile,
		ReadLength:         row.ReadLength,
		MedianFragmentSize: row.MedianFrag,
		StdevFragmentSize:  row.StdevFrag,
		Inputs:             splitList(row.Inputs),
		Pairing:            splitList(row.Pairing),
	}
	var err error
	if lib.Protocol, err = breakpoint.ParseProtocol(row.Protocol); err != nil {
		return Library{}, err
	}
	if row.StrandedBAM != "" {
		if lib.StrandedBAM, err = strconv.ParseBool(row.StrandedBAM); err != nil {
			return Library{}, errors.Errorf("config: invalid stranded_bam %q", row.StrandedBAM)
		}
	}
	if err := lib.Validate(); err != nil {
		return Library{}, err
	}
	return lib, nil
}

// ReadLibraries reads a library metadata table.  Library names must be
// unique, at least one library must be present, and every pairing target
// must name a library in the table.
func ReadLibraries(r io.Reader) ([]Library, error) {
	header, r, err := headerLine(r)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	var libs []Library
	lines := make(map[string]int)
	for line := 2; ; line++ {
		var row libraryRow
		if err := tr.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "library table line %d", line)
		}
		lib, err := libraryFromRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "library table line %d", line)
		}
		if prev, ok := lines[lib.Name]; ok {
			return nil, errors.Errorf("config: library %s defined on lines %d and %d", lib.Name, prev, line)
		}
		lines[lib.Name] = line
		libs = append(libs, lib)
	}
	if len(libs) == 0 {
		return nil, errors.New("config: library table needs at least one library")
	}
	names := make([]string, 0, len(libs))
	for _, lib := range libs {
		names = append(names, lib.Name)
	}
	for _, lib := range libs {
		for _, partner := range lib.Pairing {
			if _, ok := lines[partner]; !ok {
				msg := fmt.Sprintf("config: library %s pairs against unknown library %q", lib.Name, partner)
				if hint := util.DidYouMean(partner, names, 2); hint != "" {
					msg += "; " + hint
				}
				return nil, errors.New(msg)
			}
		}
	}
	return libs, nil
}

// ReadLibrariesPath reads a library metadata table from path.
func ReadLibrariesPath(ctx context.Context, path string) ([]Library, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	libs, err := ReadLibraries(r)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(err, "%s", path)
	}
	if err := in.Close(ctx); err != nil {
		return nil, errors.Wrapf(err, "close %s", path)
	}
	return libs, nil
}

// Find returns the library with the given name, or nil.
func Find(libs []Library, name string) *Library {
	for i := range libs {
		if libs[i].Name == name {
			return &libs[i]
		}
	}
	return nil
}

// WriteLibraries writes a library metadata table, header line first.
func WriteLibraries(w io.Writer, libs []Library) error {
	tw := tsv.NewWriter(w)
	for _, col := range libraryColumns {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return errors.Wrap(err, "write library header")
	}
	for i := range libs {
		lib := &libs[i]
		tw.WriteString(lib.Name)
		tw.WriteString(lib.Protocol.String())
		tw.WriteString(lib.BAMFile)
		tw.WriteInt64(int64(lib.ReadLength))
		tw.WriteInt64(int64(lib.MedianFragmentSize))
		tw.WriteInt64(int64(lib.StdevFragmentSize))
		tw.WriteString(strconv.FormatBool(lib.StrandedBAM))
		tw.WriteString(strings.Join(lib.Inputs, ";"))
		tw.WriteString(strings.Join(lib.Pairing, ";"))
		if err := tw.EndLine(); err != nil {
			return errors.Wrapf(err, "write library %d", i+1)
		}
	}
	return tw.Flush()
}

// WriteLibrariesPath writes a library metadata table to path.
func WriteLibrariesPath(ctx context.Context, path string, libs []Library) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return errors.Wrapf(WriteLibraries(out.Writer(ctx), libs), "%s", path)
}
