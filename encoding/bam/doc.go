// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bam provides types and functions that augment the BAM and SAM
// packages in github.com/grailbio/hts: flag and clipping predicates on
// alignment records, cigar rewrites used when calling structural events,
// and indexed fetching of records overlapping a reference region.
package bam
