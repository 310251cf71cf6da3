package llm

import (
	"github.com/joseph-ayodele/store-extractor/internal/common"
)

// Capability is what a caller needs from a provider.
type Capability string

const (
	CapabilityImage Capability = "image"
	CapabilityText  Capability = "text"
)

// SelectImage returns the first available provider that can read images.
func SelectImage(providers []Provider) (ImageExtractor, error) {
	return selectFirst[ImageExtractor](providers, CapabilityImage)
}

// SelectText returns the first available provider that can read text.
func SelectText(providers []Provider) (TextExtractor, error) {
	return selectFirst[TextExtractor](providers, CapabilityText)
}

// Select reports which provider would serve capability, without calling it.
func Select(providers []Provider, capability Capability) (Provider, error) {
	switch capability {
	case CapabilityImage:
		return SelectImage(providers)
	case CapabilityText:
		return SelectText(providers)
	default:
		return nil, common.Errorf(common.KindNoProviderAvailable, "unknown capability %q", capability)
	}
}

func selectFirst[T Provider](providers []Provider, capability Capability) (T, error) {
	var zero T
	for _, p := range providers {
		if p == nil || !p.Available() {
			continue
		}
		if c, ok := p.(T); ok {
			return c, nil
		}
	}
	return zero, common.Errorf(common.KindNoProviderAvailable, "no model provider configured for %s extraction", capability)
}
