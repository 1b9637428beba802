// Package overshoot is the Go client SDK for the Overshoot real-time
// video-analysis API. It wraps the REST endpoints (stream create/keepalive/
// close, prompt updates, model listing, feedback) and delivers inference
// results over a WebSocket subscription, with optional local WebRTC peer
// connection setup for camera and file sources.
//
// The high-level entry point is Client:
//
//	client, err := overshoot.New("sk-...")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	stream, err := client.Streams.Create(ctx, overshoot.CreateStreamOptions{
//		Source: overshoot.CameraSource{},
//		Prompt: "Describe what you see",
//		OnResult: func(r overshoot.StreamInferenceResult) {
//			fmt.Println(r.Result)
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer stream.Close()
//
// Streams renew their lease and consume results in the background until
// Close is called or the lease can no longer be renewed. For direct access
// to individual endpoints without background tasks, use APIClient.
package overshoot
