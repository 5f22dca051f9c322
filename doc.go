/*
Package binser contains composable binary writers and readers which encode
and decode caller-driven data to and from growable buffers, pooled buffers
or arbitrary streams.

All multi-byte values are stored little-endian. Writers expose a single raw
write path; every typed helper lowers its value onto that path. Readers
offer strict helpers, which fail with ErrInsufficientData, and tolerant
Try* helpers, which report missing data as ok=false.

Data Structure Documentation

Scalars

Fixed-width integers take 1, 2, 4 or 8 bytes, floats 4 or 8 bytes
(IEEE-754), booleans a single byte. There is no padding.

Byte sequence

Strings and byte slices are encoded as a length-prefixed blob. Strings are
converted with the configured text encoding first.

    +----------------+-------------------+
    | length (int32) | payload (length)  |
    +----------------+-------------------+

Sequence

    +---------------+------------+-------+------------+
    | count (int32) | element 1  |  ...  | element n  |
    +---------------+------------+-------+------------+

Sectors

A sector block frames independent byte regions so that each one can be
extracted without parsing the others.

    +---------------+-------------------+-------------------+-------+-------------------+-------------------+
    | count (int32) | length 1 (int32)  | sector 1 (varlen) |  ...  | length n (int32)  | sector n (varlen) |
    +---------------+-------------------+-------------------+-------+-------------------+-------------------+

Negative lengths and counts are always rejected with ErrNegativeLength.

Overlays

Writers and readers can be layered with a byte transform (compression,
encryption) using Overlay. The transform is created on first use and an
overlaid writer must be closed before its parent's output is complete.
*/
package binser
