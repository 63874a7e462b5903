package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// lookupOne joins a single referenced document into field as, leaving it
// absent when the reference is missing or dangling.
func lookupOne(from, localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: as},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + as},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func pipeline(stages ...[]bson.D) mongo.Pipeline {
	var p mongo.Pipeline
	for _, s := range stages {
		p = append(p, s...)
	}
	return p
}

func stage(key string, value interface{}) []bson.D {
	return []bson.D{{{Key: key, Value: value}}}
}
