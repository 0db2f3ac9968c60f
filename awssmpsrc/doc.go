// Package awssmpsrc provides a secret source backed by the AWS Systems Manager
// Parameter Store.
//
// The URL must be hierarchical, like "aws+smp:///prod/app/". A path ending in
// "/" names a parameter hierarchy, and every parameter directly under it is
// exposed as a file named by the last element of its name. Otherwise the path
// names a single parameter. As with awssmsrc, a single parameter holding a
// secrets document can be expanded with the "format" query parameter.
//
// SecureString parameters are always decrypted.
package awssmpsrc
