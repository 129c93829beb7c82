package api

import (
	"github.com/clipdeck/clipdeck/internal/api/medias"
	"github.com/clipdeck/clipdeck/internal/websocket"
	"github.com/google/uuid"
)

const (
	TITLE_MEDIA_INGESTED = "MEDIA_INGESTED"
	TITLE_MEDIA_REMOVED  = "MEDIA_REMOVED"
)

type (
	MediaIngestedUpdate struct {
		MediaID uuid.UUID        `json:"media_id"`
		Media   *medias.MediaDto `json:"media"`
	}

	MediaRemovedUpdate struct {
		MediaID uuid.UUID `json:"media_id"`
	}

	broadcaster struct {
		socketHub  *websocket.SocketHub
		mediaStore medias.Store
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, mediaStore medias.Store) *broadcaster {
	return &broadcaster{socketHub, mediaStore}
}

func (hub *broadcaster) BroadcastMediaIngested(id uuid.UUID) error {
	file, err := hub.mediaStore.GetMedia(id)
	if err != nil {
		return err
	}

	dto := medias.NewDto(file)
	hub.broadcast(TITLE_MEDIA_INGESTED, MediaIngestedUpdate{MediaID: id, Media: &dto})
	return nil
}

func (hub *broadcaster) BroadcastMediaRemoved(id uuid.UUID) error {
	hub.broadcast(TITLE_MEDIA_REMOVED, MediaRemovedUpdate{MediaID: id})
	return nil
}

func (hub *broadcaster) broadcast(title string, update any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})
}
