// Package classifier defines the boundary between the queue worker and the
// image classification model. The worker only sees the Classifier interface;
// the HTTP client in this package talks to the external model server.
package classifier
