package transport

import (
	"testing"
	"time"
)

func TestLogFramePadding(t *testing.T) {
	testLogFrame(t, paddingFrame{}, "frame_type=padding")
}

func TestLogFramePing(t *testing.T) {
	testLogFrame(t, pingFrame{}, "frame_type=ping")
}

func TestLogFrameAck(t *testing.T) {
	f := &ackFrame{
		largestAcked: 1,
		ackDelay:     2 * time.Microsecond,
		ranges:       []ackRange{{smallest: 0, largest: 1}},
	}
	testLogFrame(t, f, "frame_type=ack largest_acked=1 ack_delay=2 range_count=1")
}

func TestLogFrameResetStream(t *testing.T) {
	f := &resetStreamFrame{streamID: 1, errorCode: 2, finalSize: 3}
	testLogFrame(t, f, "frame_type=reset_stream stream_id=1 error_code=2 final_size=3")
}

func TestLogFrameStopSending(t *testing.T) {
	f := &stopSendingFrame{streamID: 1, errorCode: 2}
	testLogFrame(t, f, "frame_type=stop_sending stream_id=1 error_code=2")
}

func TestLogFrameCrypto(t *testing.T) {
	f := &cryptoFrame{offset: 1, data: make([]byte, 5)}
	testLogFrame(t, f, "frame_type=crypto offset=1 length=5")
}

func TestLogFrameNewToken(t *testing.T) {
	f := &newTokenFrame{token: make([]byte, 4)}
	testLogFrame(t, f, "frame_type=new_token token=00000000")
}

func TestLogFrameStream(t *testing.T) {
	f := &streamFrame{streamID: 2, offset: 3, data: make([]byte, 4), fin: true}
	testLogFrame(t, f, "frame_type=stream stream_id=2 offset=3 length=4 fin=true")
}

func TestLogFrameMaxData(t *testing.T) {
	f := &maxDataFrame{maximumData: 1}
	testLogFrame(t, f, "frame_type=max_data maximum=1")
}

func TestLogFrameMaxStreamData(t *testing.T) {
	f := &maxStreamDataFrame{streamID: 1, maximumData: 2}
	testLogFrame(t, f, "frame_type=max_stream_data stream_id=1 maximum=2")
}

func TestLogFrameMaxStreams(t *testing.T) {
	f := &maxStreamsFrame{maximumStreams: 1, bidi: false}
	testLogFrame(t, f, "frame_type=max_streams stream_type=unidirectional maximum=1")
	f = &maxStreamsFrame{maximumStreams: 2, bidi: true}
	testLogFrame(t, f, "frame_type=max_streams stream_type=bidirectional maximum=2")
}

func TestLogFrameDataBlocked(t *testing.T) {
	f := &dataBlockedFrame{maximumData: 1}
	testLogFrame(t, f, "frame_type=data_blocked limit=1")
}

func TestLogFrameStreamDataBlocked(t *testing.T) {
	f := &streamDataBlockedFrame{streamID: 1, maximumData: 2}
	testLogFrame(t, f, "frame_type=stream_data_blocked stream_id=1 limit=2")
}

func TestLogFrameStreamsBlocked(t *testing.T) {
	f := &streamsBlockedFrame{maximumStreams: 1, bidi: false}
	testLogFrame(t, f, "frame_type=streams_blocked stream_type=unidirectional limit=1")
	f = &streamsBlockedFrame{maximumStreams: 2, bidi: true}
	testLogFrame(t, f, "frame_type=streams_blocked stream_type=bidirectional limit=2")
}

func TestLogFrameNewConnectionID(t *testing.T) {
	f := &newConnectionIDFrame{sequenceNumber: 1, retirePriorTo: 0, connectionID: []byte{0xaa, 0xbb}}
	testLogFrame(t, f, "frame_type=new_connection_id sequence_number=1 retire_prior_to=0 connection_id=aabb")
}

func TestLogFrameRetireConnectionID(t *testing.T) {
	f := &retireConnectionIDFrame{sequenceNumber: 0x1234}
	testLogFrame(t, f, "frame_type=retire_connection_id sequence_number=4660")
}

func TestLogFramePathChallenge(t *testing.T) {
	f := &pathChallengeFrame{data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	testLogFrame(t, f, "frame_type=path_challenge data=0102030405060708")
}

func TestLogFramePathResponse(t *testing.T) {
	f := &pathResponseFrame{data: [8]byte{8, 7, 6, 5, 4, 3, 2, 1}}
	testLogFrame(t, f, "frame_type=path_response data=0807060504030201")
}

func TestLogFrameConnectionClose(t *testing.T) {
	f := &connectionCloseFrame{isApplication: false, errorCode: 0x122, triggeringFrameType: 99, reason: "reason"}
	testLogFrame(t, f, "frame_type=connection_close error_space=transport error_code=UNKNOWN_ERROR raw_error_code=290 reason=reason trigger_frame_type=99")
}

func TestLogFrameHandshakeDone(t *testing.T) {
	testLogFrame(t, handshakeDoneFrame{}, "frame_type=handshake_done")
}

func testLogFrame(t *testing.T, f frame, expect string) {
	tm := time.Date(2020, time.January, 5, 2, 3, 4, 5, time.UTC)
	e := newLogEventFrame(tm, logEventFramesProcessed, f)
	expect = "2020-01-05T02:03:04Z frames_processed " + expect
	actual := e.String()
	if expect != actual {
		t.Helper()
		t.Fatalf("\nexpect %v\nactual %v", expect, actual)
	}
}
