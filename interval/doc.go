/*Package interval implements closed 1-based interval arithmetic for genomic
  and spliced-transcript coordinates, plus a merged union of masked reference
  regions (MaskSet) loaded from masking or BED files.
  (Note the 'union'.  Overlapping masked regions are merged, not tracked
  separately.)  MaskSet assumes every position fits in a PosType, which is
  currently defined as int32 since that's what BAM files are limited to.
*/
package interval
