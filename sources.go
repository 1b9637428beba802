package overshoot

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/Overshoot-ai/overshoot-go/internal/media"
)

// resolvedSource is the outcome of resolving a Source: the wire-ready source
// to send to the API, plus the local peer connection and media pipeline that
// must stay alive for the stream's duration and be released on close.
type resolvedSource struct {
	wireSource Source
	pc         *webrtc.PeerConnection
	pipeline   *media.Pipeline
	logger     *slog.Logger

	releaseOnce sync.Once
}

// resolveSource converts any Source into a wire-ready one.
//
// LiveKitSource and WebRTCSource pass through untouched. FileSource and
// CameraSource create a peer connection with a local H.264 track and return
// the generated SDP offer as a WebRTCSource.
func resolveSource(source Source, iceServers []webrtc.ICEServer, logger *slog.Logger) (*resolvedSource, error) {
	switch s := source.(type) {
	case LiveKitSource, WebRTCSource:
		return &resolvedSource{wireSource: s, logger: logger}, nil

	case FileSource:
		pipeline, err := media.NewFilePipeline(s.Path, s.Loop, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open video file: %w", err)
		}
		resolved, err := offerFromPipeline(pipeline, iceServers, logger)
		if err != nil {
			pipeline.Stop()
			return nil, err
		}
		logger.Debug("created WebRTC offer from file", slog.String("path", s.Path))
		return resolved, nil

	case CameraSource:
		pipeline, err := media.NewCameraPipeline(s.Device, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open camera: %w", err)
		}
		resolved, err := offerFromPipeline(pipeline, iceServers, logger)
		if err != nil {
			pipeline.Stop()
			return nil, err
		}
		logger.Debug("created WebRTC offer from camera", slog.String("device", s.Device))
		return resolved, nil

	default:
		return nil, fmt.Errorf("unsupported source type %T", source)
	}
}

// offerFromPipeline creates a peer connection carrying the pipeline's track
// and produces a complete (non-trickle) SDP offer.
func offerFromPipeline(pipeline *media.Pipeline, iceServers []webrtc.ICEServer, logger *slog.Logger) (*resolvedSource, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	if _, err := pc.AddTrack(pipeline.Track()); err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to add video track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	<-gatherComplete

	return &resolvedSource{
		wireSource: WebRTCSource{SDP: pc.LocalDescription().SDP},
		pc:         pc,
		pipeline:   pipeline,
		logger:     logger,
	}, nil
}

// applyAnswer sets the server's SDP answer on the peer connection. A no-op
// for pass-through sources.
func (r *resolvedSource) applyAnswer(answer *WebRTCAnswer) error {
	if r.pc == nil {
		return nil
	}
	err := r.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
	if err != nil {
		return fmt.Errorf("failed to apply SDP answer: %w", err)
	}
	r.logger.Debug("applied SDP answer to peer connection")
	return nil
}

// close releases the peer connection and media pipeline. Runs at most once
// no matter how often it is called.
func (r *resolvedSource) close() {
	r.releaseOnce.Do(func() {
		if r.pc != nil {
			if err := r.pc.Close(); err != nil {
				r.logger.Warn("error closing peer connection", slog.String("error", err.Error()))
			}
			r.logger.Debug("peer connection closed")
		}
		if r.pipeline != nil {
			r.pipeline.Stop()
			r.logger.Debug("media pipeline stopped")
		}
	})
}
