// Package rowbatch turns streams of raw example rows into fixed-size,
// column-oriented batches of tensors for training and evaluation loops.
//
// A Data pipeline ties the pieces together: a source.DataSource supplies
// one row stream per phase, a tensorize.Tensorizer set converts fields to
// numeric form, and a batch.Batcher groups converted rows into batches.
// Construction runs the tensorizers' one-time initialization pass over the
// full training stream, building vocabularies and normalization statistics
// before any batch is served.
//
// Batches(phase) returns a lazily evaluated, restartable sequence of tensor
// batches. Rows are pulled from the source only as batches are consumed,
// and traversals can be abandoned at any point. Numberized rows are cached
// in memory per phase by default, so later passes skip the source and the
// per-row conversion work entirely.
//
// For training, an epoch size may be fixed in batches. A traversal then
// ends after exactly that many, picking up mid-stream on the next
// traversal. One logical epoch spans as many physical passes over the
// supply as it needs, so epoch boundaries decouple from dataset size.
//
// A pipeline is driven by one goroutine at a time; nothing here is safe for
// concurrent use.
package rowbatch
