package main

import (
	"flag"
	"log"
	"os"

	"masterpay/internal/app"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Путь к файлу конфигурации")
	flag.Parse()

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		log.Fatalf("Конфигурационный файл не найден: %s", *configPath)
	}

	if err := app.RunSaleBot(*configPath); err != nil {
		log.Fatal(err)
	}
}
