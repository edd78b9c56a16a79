package service

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rktypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// ImageScreener decides cheaply whether a photo is worth sending to the model.
type ImageScreener interface {
	LooksLikeFood(ctx context.Context, image []byte) (bool, error)
}

// DetectLabelsAPI is the part of the Rekognition client the screener needs.
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

var foodLabels = []string{
	"food", "meal", "dish", "drink", "beverage", "fruit", "vegetable", "produce",
	"bread", "snack", "dessert", "plant", "bottle", "package", "label", "text", "box",
}

// RekognitionScreener accepts an image when any detected label, or one of its
// parents, is food related. Packaging and label text count so nutrition panels pass.
type RekognitionScreener struct {
	client        DetectLabelsAPI
	minConfidence float32
}

// NewRekognitionScreener creates a new RekognitionScreener instance
func NewRekognitionScreener(client DetectLabelsAPI, minConfidence float32) *RekognitionScreener {
	if minConfidence <= 0 {
		minConfidence = 70
	}
	return &RekognitionScreener{client: client, minConfidence: minConfidence}
}

func (r *RekognitionScreener) LooksLikeFood(ctx context.Context, image []byte) (bool, error) {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &rktypes.Image{Bytes: image},
		MaxLabels:     aws.Int32(20),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return false, err
	}

	for _, label := range out.Labels {
		if isFoodLabel(aws.ToString(label.Name)) {
			return true, nil
		}
		for _, parent := range label.Parents {
			if isFoodLabel(aws.ToString(parent.Name)) {
				return true, nil
			}
		}
	}
	return false, nil
}

func isFoodLabel(name string) bool {
	name = strings.ToLower(name)
	for _, l := range foodLabels {
		if strings.Contains(name, l) {
			return true
		}
	}
	return false
}
