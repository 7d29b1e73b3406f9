package util

import "fmt"

func GetGeneratedAudioKey(taskID string) string {
	return fmt.Sprintf("generated_audio:%s", taskID)
}

func GetReferenceAudioKey(audioID string) string {
	return fmt.Sprintf("reference_audio:%s", audioID)
}
