package app

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/common"
	"ylabs/internal/domain/user"
)

func parseObjectID(value string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return bson.NilObjectID, common.NewObjectIDError()
	}
	return id, nil
}

func normalizeNetIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if normalized := user.NormalizeNetID(id); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

func containsID(ids []bson.ObjectID, id bson.ObjectID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
