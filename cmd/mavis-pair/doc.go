/*Command mavis-pair links equivalent event calls across libraries.  The
  call sets named on the command line are pooled and every call is
  compared against the calls of the other libraries; the output table
  lists, per product id, the ids of its equivalent partners.

  Usage: mavis-pair -annotations ref.gtf genome-calls.tab trans-calls.tab

  Cross-protocol comparisons project genome breakpoints through the named
  transcript, so -annotations should be the annotation set the calls were
  annotated against; files named *.gtf are parsed as GTF, everything else
  as the flat transcript table.  When calls carry predicted fusion
  products, -products names the FASTA their sequences were written to.
*/
package main
