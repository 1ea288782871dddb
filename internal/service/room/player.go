package room

import "time"

type PlayerAction string

const (
	PlayerActionSelectVideo PlayerAction = "select_video"
	PlayerActionPlay        PlayerAction = "play"
	PlayerActionPause       PlayerAction = "pause"
	PlayerActionSeek        PlayerAction = "seek"
)

// PlayerCommand is a playback transition requested by a member connection.
type PlayerCommand struct {
	Action   PlayerAction
	VideoId  string
	Position float64
}

// playerState is the authoritative playback state of one room. It is only
// ever touched by its coordinator while the room mutex is held, so it needs
// no locking of its own.
type playerState struct {
	videoId   *string
	isPlaying bool
	position  float64
	updatedAt time.Time
	version   int64
}

func (p *playerState) snapshot() Player {
	var videoId *string
	if p.videoId != nil {
		id := *p.videoId
		videoId = &id
	}

	return Player{
		VideoId:   videoId,
		IsPlaying: p.isPlaying,
		Position:  p.position,
		UpdatedAt: p.updatedAt.Unix(),
		Version:   p.version,
	}
}

// selectVideo moves the room to paused at position 0, from any state.
func (p *playerState) selectVideo(videoId string, now time.Time) Player {
	p.videoId = &videoId
	p.isPlaying = false
	p.position = 0
	p.updatedAt = now
	p.version++

	return p.snapshot()
}

// play starts playback at the given position. Playing while already playing
// is an accepted no-op: the current snapshot is returned without a version
// bump and changed is false.
func (p *playerState) play(position float64, now time.Time) (Player, bool, error) {
	if p.videoId == nil {
		return Player{}, false, &RejectedCommandError{Command: string(PlayerActionPlay), Reason: "no video selected"}
	}
	if p.isPlaying {
		return p.snapshot(), false, nil
	}

	p.isPlaying = true
	p.position = clampPosition(position)
	p.updatedAt = now
	p.version++

	return p.snapshot(), true, nil
}

func (p *playerState) pause(position float64, now time.Time) (Player, bool, error) {
	if p.videoId == nil {
		return Player{}, false, &RejectedCommandError{Command: string(PlayerActionPause), Reason: "no video selected"}
	}
	if !p.isPlaying {
		return p.snapshot(), false, nil
	}

	p.isPlaying = false
	p.position = clampPosition(position)
	p.updatedAt = now
	p.version++

	return p.snapshot(), true, nil
}

// seek moves the playhead without changing the play/pause state. Positions
// below zero clamp to zero; no upper bound is enforced because the video
// duration is unknown here.
func (p *playerState) seek(position float64, now time.Time) (Player, bool, error) {
	if p.videoId == nil {
		return Player{}, false, &RejectedCommandError{Command: string(PlayerActionSeek), Reason: "no video selected"}
	}

	p.position = clampPosition(position)
	p.updatedAt = now
	p.version++

	return p.snapshot(), true, nil
}

func clampPosition(position float64) float64 {
	if position < 0 {
		return 0
	}

	return position
}
