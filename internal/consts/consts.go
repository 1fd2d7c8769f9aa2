// Package consts defines application-wide constants.
package consts

// Format selectors with reserved meaning.
const (
	// FormatAudioOnly requests best-audio extraction transcoded to mp3.
	FormatAudioOnly = "audio_only"
	// FormatBest requests the default quality ladder.
	FormatBest = "best"
)

// Audio extraction settings, applied when FormatAudioOnly is requested.
const (
	// AudioCodec is the target audio codec for audio-only downloads.
	AudioCodec = "mp3"
	// AudioQuality is the target audio bitrate for audio-only downloads.
	AudioQuality = "192K"
)

// QualityLadder prefers >=720p with both streams present, degrading
// gracefully to best-available.
const QualityLadder = "best[height>=720][acodec!=none]/best[height>=480][acodec!=none]/best[acodec!=none]/best"

// VideoRoute is the public path prefix for serving finished artifacts.
const VideoRoute = "/video/"

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespExtractFail is returned when metadata resolution fails.
	RespExtractFail = "extract failed"
	// RespExtractOK is returned when metadata resolution succeeds.
	RespExtractOK = "extract ok"
	// RespDownloadStarted is returned when a download job is enqueued.
	RespDownloadStarted = "download started"
	// RespDownloadStartFail is returned when a download job cannot be enqueued.
	RespDownloadStartFail = "download start failed"
	// RespJobRetrieved is returned when a job snapshot is successfully retrieved.
	RespJobRetrieved = "job retrieved"
	// RespJobNotFound is returned when a job is not found.
	RespJobNotFound = "job not found"
	// RespFileNotFound is returned when a served file is not found.
	RespFileNotFound = "file not found"
)

// Fetcher identifiers.
const (
	// FetcherYTdlp is the yt-dlp fetcher identifier.
	FetcherYTdlp = "ytdlp"
	// FetcherMock is the mock fetcher identifier for testing.
	FetcherMock = "mock"
)
