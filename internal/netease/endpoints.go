// Typed adapters for the NetEase endpoints consumed by cloudmatch.
package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// Business codes returned in response payloads.
const (
	CodeOK             = 200
	CodeSessionExpired = 301
	CodeQRExpired      = 800
	CodeQRWaiting      = 801
	CodeQRConfirmed    = 803
)

// LoginURL returns the URL a scanned QR code resolves to for the given challenge key.
func LoginURL(key string) string {
	return "https://music.163.com/login?codekey=" + key
}

// SongURL returns the public page for a catalog song, used by match --open.
func SongURL(songID string) string {
	return "https://music.163.com/#/song?id=" + songID
}

// FetchLoginKey requests a fresh QR login challenge key.
//
// GET /api/login/qrcode/unikey?type=1 -> {code, unikey}
func (c *Client) FetchLoginKey(ctx context.Context) (string, error) {
	resp, err := c.Get(ctx, "/api/login/qrcode/unikey", url.Values{"type": {"1"}})
	if err != nil {
		return "", err
	}

	var payload struct {
		Code   int    `json:"code"`
		Unikey string `json:"unikey"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}

	if payload.Code != CodeOK || payload.Unikey == "" {
		return "", fmt.Errorf("%w: unikey request returned code %d", shared.ErrAPIRequest, payload.Code)
	}

	return payload.Unikey, nil
}

// PollResult carries one poll tick's outcome. Token is only populated on
// [CodeQRConfirmed], extracted from the MUSIC_U Set-Cookie header.
type PollResult struct {
	Code    int
	Message string
	Token   string
}

// PollLogin checks whether the QR challenge identified by key has been scanned.
//
// POST /api/login/qrcode/client/login {key, type=1} -> {code}; the session
// token rides on the response headers when code is 803.
func (c *Client) PollLogin(ctx context.Context, key string) (*PollResult, error) {
	resp, err := c.PostForm(ctx, "/api/login/qrcode/client/login", url.Values{
		"key":  {key},
		"type": {"1"},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	result := &PollResult{Code: payload.Code, Message: payload.Message}
	if payload.Code == CodeQRConfirmed {
		// Only a proper MUSIC_U cookie counts; a confirmation without one
		// is reported upstream as a failed login.
		result.Token = resp.Cookie("MUSIC_U")
	}

	return result, nil
}

// Profile is the authenticated account summary.
type Profile struct {
	UserID    string
	Nickname  string
	AvatarURL string
}

// FetchAccount retrieves the profile of the session's user.
//
// POST /api/nuser/account/get -> {profile: {nickname, userId, avatarUrl}}
func (c *Client) FetchAccount(ctx context.Context) (*Profile, error) {
	resp, err := c.PostForm(ctx, "/api/nuser/account/get", url.Values{})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code    int `json:"code"`
		Profile *struct {
			Nickname  string      `json:"nickname"`
			UserID    json.Number `json:"userId"`
			AvatarURL string      `json:"avatarUrl"`
		} `json:"profile"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	if payload.Profile == nil {
		return nil, fmt.Errorf("%w: account response carries no profile", shared.ErrDecode)
	}

	return &Profile{
		UserID:    payload.Profile.UserID.String(),
		Nickname:  payload.Profile.Nickname,
		AvatarURL: payload.Profile.AvatarURL,
	}, nil
}

// CloudPage is one page of the user's cloud-drive catalog.
type CloudPage struct {
	Code     int
	Songs    []models.Song
	Count    int
	Size     int64
	MaxSize  int64
	HasMore  bool
}

// FetchCloud retrieves one page of cloud songs.
//
// POST /api/v1/cloud/get {limit, offset} -> {code, data, count, size, maxSize};
// code 301 signals an expired session and is passed through untouched.
func (c *Client) FetchCloud(ctx context.Context, limit, offset int) (*CloudPage, error) {
	resp, err := c.PostForm(ctx, "/api/v1/cloud/get", url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code    int               `json:"code"`
		Data    []cloudSongRecord `json:"data"`
		Count   int               `json:"count"`
		Size    byteSize          `json:"size"`
		MaxSize byteSize          `json:"maxSize"`
		HasMore bool              `json:"hasMore"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	page := &CloudPage{
		Code:    payload.Code,
		Count:   payload.Count,
		Size:    int64(payload.Size),
		MaxSize: int64(payload.MaxSize),
		HasMore: payload.HasMore,
	}

	for _, record := range payload.Data {
		if song, ok := record.song(); ok {
			page.Songs = append(page.Songs, song)
		}
	}

	return page, nil
}

// MatchOutcome is the decoded result of a match request.
type MatchOutcome struct {
	Code    int
	Message string
	Updated *models.Song
}

// SubmitMatch asks the service to re-point a cloud song at another catalog entry.
//
// GET /api/cloud/user/song/match?userId&songId&adjustSongId -> {code, message?, matchData?}
func (c *Client) SubmitMatch(ctx context.Context, userID, songID, targetID string) (*MatchOutcome, error) {
	resp, err := c.Get(ctx, "/api/cloud/user/song/match", url.Values{
		"userId":       {userID},
		"songId":       {songID},
		"adjustSongId": {targetID},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code      int              `json:"code"`
		Message   string           `json:"message"`
		MatchData *cloudSongRecord `json:"matchData"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	outcome := &MatchOutcome{Code: payload.Code, Message: payload.Message}
	if payload.MatchData != nil {
		if song, ok := payload.MatchData.song(); ok {
			outcome.Updated = &song
		}
	}

	return outcome, nil
}

// cloudSongRecord is the wire form of a cloud catalog entry. The interesting
// metadata lives under simpleSong; file attributes sit beside it.
type cloudSongRecord struct {
	SimpleSong struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
		Ar   []struct {
			Name string `json:"name"`
		} `json:"ar"`
		Al struct {
			Name   string `json:"name"`
			PicURL string `json:"picUrl"`
		} `json:"al"`
		Dt int `json:"dt"`
	} `json:"simpleSong"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Bitrate  int    `json:"bitrate"`
	AddTime  int64  `json:"addTime"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
}

// song converts the wire record to a [models.Song]. Records without an id and
// name under simpleSong are skipped, matching the remote's own tolerance for
// half-filled entries.
func (r *cloudSongRecord) song() (models.Song, bool) {
	if r.SimpleSong.ID.String() == "" || r.SimpleSong.Name == "" {
		return models.Song{}, false
	}

	song := models.Song{
		ID:       r.SimpleSong.ID.String(),
		Name:     r.SimpleSong.Name,
		Artist:   r.Artist,
		Album:    r.Album,
		FileName: r.FileName,
		FileSize: r.FileSize,
		Bitrate:  r.Bitrate,
		PicURL:   r.SimpleSong.Al.PicURL,
		Duration: r.SimpleSong.Dt,
	}

	if len(r.SimpleSong.Ar) > 0 && r.SimpleSong.Ar[0].Name != "" {
		song.Artist = r.SimpleSong.Ar[0].Name
	}
	if r.SimpleSong.Al.Name != "" {
		song.Album = r.SimpleSong.Al.Name
	}
	if song.Artist == "" {
		song.Artist = "Unknown Artist"
	}
	if song.Album == "" {
		song.Album = "Unknown Album"
	}

	if r.AddTime > 0 {
		song.AddTime = time.UnixMilli(r.AddTime)
	} else {
		song.AddTime = time.Now()
	}

	return song, true
}

// byteSize decodes quota figures that the remote serializes either as JSON
// numbers or as decimal strings.
type byteSize int64

func (b *byteSize) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*b = 0
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	*b = byteSize(n)
	return nil
}
