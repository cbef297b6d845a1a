/*Command mavis-convert translates the output of an external structural
  variant caller into the tabular pair format the rest of the pipeline
  consumes.  One run converts the files of one tool for one library; the
  library table supplies the protocol and strandedness under which the
  caller ran, and every output row is stamped with the library name and a
  sequential product id.

  Usage: mavis-convert -config libraries.tsv -library mock-A36971 -tool delly delly.vcf.gz

  Without positional inputs the files listed in the library's inputs
  column are converted instead.
*/
package main
