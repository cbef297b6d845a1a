package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// GenerateIndex writes a faidx index (*.fai) for the FASTA data in `in`.
// The index can later be passed to NewIndexed to random-access the FASTA
// file. The format is the one emitted by "samtools faidx"
// (http://www.htslib.org/doc/faidx.html).
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w          = tsv.NewWriter(out)
		r          = bufio.NewReader(in)
		seqName    string
		seqOffset  int64
		totalBases int
		lineBases  int
		lineWidth  int
		cumByte    int64
	)
	flush := func() error {
		w.WriteString(seqName)
		w.WriteInt64(int64(totalBases))
		w.WriteInt64(seqOffset)
		w.WriteInt64(int64(lineBases))
		w.WriteInt64(int64(lineWidth))
		return w.EndLine()
	}
	eof := false
	for !eof {
		fullLine, err := r.ReadBytes('\n')
		if err == io.EOF {
			eof = true
		} else if err != nil {
			return errors.Wrap(err, "read FASTA data")
		}
		cumByte += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if seqName != "" {
				if err := flush(); err != nil {
					return err
				}
			}
			seqName = strings.SplitN(string(line[1:]), " ", 2)[0]
			seqOffset = cumByte
			totalBases, lineBases, lineWidth = 0, 0, 0
			continue
		}
		if seqName == "" {
			return errors.New("malformed FASTA file: sequence data before the first header")
		}
		if lineWidth == 0 {
			lineWidth = len(fullLine)
			lineBases = len(line)
		}
		totalBases += len(line)
	}
	if seqName == "" {
		return errors.New("empty FASTA file")
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}
