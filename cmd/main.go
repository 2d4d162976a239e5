package main

import (
	"github.com/Evgenija-P/inFeely-server/config"
	"github.com/Evgenija-P/inFeely-server/routes"
	"github.com/Evgenija-P/inFeely-server/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()
	r := routes.SetupRouter()
	r.Run(":8080")
}
