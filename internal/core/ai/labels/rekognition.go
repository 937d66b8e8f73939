package labels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"nutrition-lens/internal/infrastructure/config"
)

// RekognitionProviderName AWS Rekognition 供應者名稱
const RekognitionProviderName = "aws-rekognition"

// RekognitionDetector AWS Rekognition DetectLabels
type RekognitionDetector struct {
	client        *rekognition.Client
	maxLabels     int32
	minConfidence float32
}

// NewRekognitionProvider 建立 Rekognition 標籤供應者
func NewRekognitionProvider(ctx context.Context, cfg *config.Config, isFood Matcher) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Rekognition.Region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	maxLabels := cfg.Rekognition.MaxLabels
	if maxLabels <= 0 {
		maxLabels = 10
	}
	minConfidence := cfg.Rekognition.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 75
	}
	det := &RekognitionDetector{
		client:        rekognition.NewFromConfig(awsCfg),
		maxLabels:     maxLabels,
		minConfidence: minConfidence,
	}
	return NewProvider(RekognitionProviderName, det, cfg.Rekognition.Timeout, isFood), nil
}

// DetectLabels 實作 Detector；Rekognition 信心分數為 0~100
func (d *RekognitionDetector) DetectLabels(ctx context.Context, image []byte) ([]Label, error) {
	out, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(d.maxLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		score := 0.0
		if l.Confidence != nil {
			score = float64(*l.Confidence) / 100
		}
		labels = append(labels, Label{Name: *l.Name, Score: score})
	}
	return labels, nil
}

// Close Rekognition 客戶端不需關閉
func (d *RekognitionDetector) Close() error {
	return nil
}
