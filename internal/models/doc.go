// Package models defines the persistent entities of the spotstat service.
//
// The service keeps no tokens on disk. What it does persist is a token lifecycle audit
// trail: every bootstrap, refresh and code exchange attempt becomes a [TokenEvent] with its
// outcome and the upstream status, so operators can see when and why authorization broke.
//
// All persistent entities implement the [Model] interface providing ID, timestamps and validation.
package models
