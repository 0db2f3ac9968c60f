// Package httpsrc provides a secret source for HTTP and HTTPS endpoints.
//
// The endpoint is fetched with a single GET request. A successful response
// body must be a secrets document, either a JSON object of name/value pairs:
//
//	{"db_password": "hunter2", "api_key": "abc123"}
//
// or a JSON array of objects with "key" and "value" fields:
//
//	[{"key": "db_password", "value": "hunter2", "owner": "ops"}]
//
// YAML documents are accepted when the response's Content-Type is a YAML
// media type, or the URL path ends in .yaml or .yml.
//
// Headers (such as Authorization) can be set with [secretfs.WithHeaderSource]
// and a request timeout with [secretfs.WithHTTPClientSource].
package httpsrc
