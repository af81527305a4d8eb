package main

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tessera/audio"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/device"
)

type info struct {
	Graphics []device.PhysicalDeviceInfo `json:"graphics"`
	Audio    []audio.Device              `json:"audio"`
}

func main() {
	cfg := core.LoadConfiguration()
	logger := core.NewLogger(cfg.Log)

	var out info
	instance, err := device.NewVulkanDevice(device.DefaultVulkanApplicationInfo, nil, device.InstanceConfiguration{
		DebugMode:  cfg.Renderer.DebugMode,
		Extensions: []string{},
		Layers:     []string{},
	}, true, logger)
	if err != nil {
		logger.WithError(err).Warn("no vulkan instance")
	} else {
		out.Graphics = instance.PhysicalDevices()
		instance.Destroy()
	}

	backend := audio.NewSDLBackend(logger)
	if out.Audio, err = backend.Devices(); err != nil {
		logger.WithError(err).Warn("no audio devices")
	}
	sdl.Quit()

	bytes, err := json.Marshal(out)
	if err != nil {
		log.WithError(err).Fatal("encoding device info")
	}
	fmt.Printf("%s", bytes)
}
