// Package fusefs serves a [secretfs.Index] as a read-only FUSE filesystem,
// using go-fuse.
//
// Every request is answered from the index. Lookups, attribute queries,
// directory listings and reads behave as for any regular filesystem, and every
// request that would modify the tree fails with EROFS. Mutation attempts are
// logged at warn level.
//
// Entries and attributes are cached by the kernel for [DefaultTTL], which is
// safe as the index never changes once built.
package fusefs
