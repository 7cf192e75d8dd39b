package models

import "mime/multipart"

// TranscodeData holds the ffmpeg options of a transcoded source.
type TranscodeData struct {
	VideoCodec string   `json:"video_codec,omitempty" example:"h264" doc:"Output video codec"`
	AudioCodec string   `json:"audio_codec,omitempty" example:"opus" doc:"Output audio codec"`
	HWAccel    string   `json:"hwaccel,omitempty" example:"auto" doc:"Hardware acceleration"`
	Preset     string   `json:"preset,omitempty" enum:"ultrafast,superfast,medium" doc:"Encoder speed preset"`
	Extra      []string `json:"extra,omitempty" doc:"Additional connection string tokens kept as-is"`
}

// StreamConfigData is the structured form of a connection string.
type StreamConfigData struct {
	SourceAddress string        `json:"source_address" example:"rtsp://10.0.0.5:554/stream" doc:"Raw source address"`
	Mode          string        `json:"mode" required:"false" enum:"direct,transcode" example:"direct" doc:"How the engine consumes the source"`
	Transcode     TranscodeData `json:"transcode" required:"false" doc:"Transcode parameters, meaningful only in transcode mode"`
}

// StreamData is a stored stream with its decoded view.
type StreamData struct {
	Name    string           `json:"name" example:"cam1" doc:"Stream name"`
	URL     string           `json:"url" example:"rtsp://10.0.0.5:554/stream" doc:"Stored connection string"`
	Config  StreamConfigData `json:"config" doc:"Decoded configuration"`
	Profile string           `json:"profile" enum:"h264_native,h265_native,ultra_low,manual" doc:"Matching optimization profile"`
}

type StreamResponse struct {
	Body StreamData
}

type StreamListData struct {
	Streams []StreamData `json:"streams" doc:"Stored streams ordered by name"`
	Count   int          `json:"count" example:"2" doc:"Number of streams"`
}

type StreamListResponse struct {
	Body StreamListData
}

// StreamRequestData creates or edits a stream. A non-empty url is stored
// as given; otherwise source_address, mode, profile and transcode are
// encoded into a connection string.
type StreamRequestData struct {
	Name          string         `json:"name,omitempty" maxLength:"128" example:"cam1" doc:"Stream name; on edit a different name renames the stream"`
	URL           string         `json:"url,omitempty" example:"rtsp://10.0.0.5:554/stream" doc:"Raw connection string"`
	SourceAddress string         `json:"source_address,omitempty" example:"rtsp://10.0.0.5:554/stream" doc:"Source address for a structured config"`
	Mode          string         `json:"mode,omitempty" enum:"direct,transcode" doc:"Mode for a structured config"`
	Profile       string         `json:"profile,omitempty" enum:"h264_native,h265_native,ultra_low,manual" doc:"Optimization profile to apply"`
	Transcode     *TranscodeData `json:"transcode,omitempty" doc:"Transcode parameters"`
}

type StreamRequest struct {
	Body StreamRequestData
}

type StreamUpdateRequest struct {
	Name string `path:"name" example:"cam1" doc:"Stream name"`
	Body StreamRequestData
}

// ImportRequest is a multipart upload with a CSV "file" part.
type ImportRequest struct {
	RawBody multipart.Form
}

type ImportResultData struct {
	BatchID string   `json:"batch_id" example:"3f0c3c0e-7a51-4b43-9f57-3a1c1d2e5b60" doc:"Import batch identifier"`
	Success int      `json:"success" example:"2" doc:"Rows stored"`
	Failed  int      `json:"failed" example:"1" doc:"Rows rejected"`
	Errors  []string `json:"errors" example:"[\"row 2: name is required\"]" doc:"One message per rejected row, in row order"`
}

type ImportResponse struct {
	Body ImportResultData
}

// Codec models
type EncodeRequest struct {
	Body StreamConfigData
}

type EncodeData struct {
	URL     string `json:"url" example:"ffmpeg:rtsp://10.0.0.5:554/stream#video=h264#raw=-preset ultrafast" doc:"Connection string"`
	Profile string `json:"profile" example:"ultra_low" doc:"Profile of the encoded config"`
}

type EncodeResponse struct {
	Body EncodeData
}

type ConnectionData struct {
	URL string `json:"url" minLength:"1" example:"ffmpeg:rtsp://10.0.0.5:554/stream#video=h264" doc:"Connection string"`
}

type DecodeRequest struct {
	Body ConnectionData
}

type DecodeData struct {
	Config  StreamConfigData `json:"config" doc:"Decoded configuration"`
	Profile string           `json:"profile" example:"manual" doc:"Matching optimization profile"`
}

type DecodeResponse struct {
	Body DecodeData
}

// Probe and discovery models
type ProbeRequest struct {
	Body ConnectionData
}

type ProbeData struct {
	Reachable bool   `json:"reachable" example:"true" doc:"Whether the source answered"`
	Address   string `json:"address" example:"rtsp://10.0.0.5:554/stream" doc:"Probed source address with credentials redacted"`
	Message   string `json:"message" example:"Stream is reachable" doc:"Result message"`
}

type ProbeResponse struct {
	Body ProbeData
}

type DiscoveredSourceData struct {
	Address string `json:"address" example:"192.168.1.20" doc:"Host address"`
	URL     string `json:"url" example:"rtsp://192.168.1.20:554/stream" doc:"Suggested connection URL"`
}

type DiscoverData struct {
	Sources []DiscoveredSourceData `json:"sources" doc:"Hosts accepting RTSP connections"`
	Count   int                    `json:"count" example:"1" doc:"Number of hosts found"`
}

type DiscoverResponse struct {
	Body DiscoverData
}
