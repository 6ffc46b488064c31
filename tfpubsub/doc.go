// Package tfpubsub carries stamped transforms over gocloud.dev/pubsub topics,
// feeding a tf2.Buffer on the receiving side.
//
// Transforms travel in two streams. The dynamic stream (conventionally
// "tf") carries time-varying transforms that are stored with their stamps and
// expire from the buffer's retention window. The static stream (conventionally
// "tf_static") carries transforms that hold for all time. Publishers of static
// transforms republish their full set on every send, so that a listener joining
// late still learns every static edge from the latest message.
//
// Each message is a gob-encoded Message, carrying a batch of transforms that
// the Listener applies in order.
package tfpubsub
