package pipeline

import "fmt"

const selectionInstruction = `Analyze all frames. Identify the main product. Select the 5 best frames showcasing it. ` +
	`Return JSON with "product_name" and "best_frame_indices" (an array of 5 zero-based indices). ` +
	`Criteria: product is focused, clear, well-lit; avoid people/distractions; varied angles.`

const enhancementInstruction = `Place this product on a clean, modern surface with soft, neutral studio lighting for a professional product shot.`

func segmentationInstruction(product string) string {
	return fmt.Sprintf("This image features a '%s'. Create a new image showing ONLY that product with a transparent background.", product)
}
