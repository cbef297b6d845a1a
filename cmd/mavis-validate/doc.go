/*Command mavis-validate gathers read evidence for putative breakpoint
  pairs and resolves them into event calls.  Each input pair is fetched
  against the library's indexed BAM, split reads and flanking read pairs
  are accumulated, and the resulting calls are written back out in the
  tabular pair format, stamped with the library name and sequential
  product ids.  Pairs that cannot be called are logged and skipped; the
  batch continues.

  Usage: mavis-validate -config libraries.tsv -library mock-A36971 [OPTIONS] pairs.tab ...

  Transcriptome libraries need -annotations so that evidence windows can
  be widened across introns; files named *.gtf are parsed as GTF,
  everything else as the flat transcript table.  With -masking, pairs
  whose breakpoints fall inside a masked region are dropped before any
  reads are fetched; files named *.bed are read as 0-based half-open,
  everything else as 1-based closed.  With -reference, the BAM header is
  checked against the FASTA's sequence lengths before validation starts.
*/
package main
