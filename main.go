package main

import (
	"flag"

	"MediChat/global/config"
	"MediChat/logger"
	"MediChat/service/broker"
	"MediChat/tools/ids"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := config.Global
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			logger.Errorf("config load: %v", err)
			return
		}
	}
	ids.SetNodeID(cfg.NodeID)

	srv := broker.NewServer(cfg.JWTSecret)
	if err := srv.Run(cfg.ListenAddr); err != nil {
		logger.Errorf("broker stopped: %v", err)
	}
}
