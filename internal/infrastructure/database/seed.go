package database

import (
	"aichat/internal/model"

	"gorm.io/gorm"
)

// Seed 空表时写入订阅档位与分类的种子数据。
// tier_id=4 是免费档，注册默认档位，额度 20
func Seed(db *gorm.DB) error {
	var tierCount int64
	if err := db.Model(&model.Tier{}).Count(&tierCount).Error; err != nil {
		return err
	}

	if tierCount == 0 {
		tiers := []model.Tier{
			{TierID: 1, Title: "Básico", ResponsesLimit: 200, Price: 1190, Link: "https://example.com/checkout?plan=basic", Check1: "sim", Check2: "sim", Check3: "sim"},
			{TierID: 2, Title: "Pro", ResponsesLimit: 400, Price: 1690, Link: "https://example.com/checkout?plan=pro", Check1: "sim", Check2: "sim", Check3: "sim"},
			{TierID: 3, Title: "Premium", ResponsesLimit: 1000, Price: 2690, Link: "https://example.com/checkout?plan=premium", Check1: "sim", Check2: "sim", Check3: "sim"},
			{TierID: 4, Title: "Free", ResponsesLimit: 20, Price: 0, Link: "https://example.com/checkout?plan=free", Check1: "sim", Check2: "sim", Check3: "não"},
		}
		if err := db.Create(&tiers).Error; err != nil {
			return err
		}
	}

	var listCount int64
	if err := db.Model(&model.List{}).Count(&listCount).Error; err != nil {
		return err
	}

	if listCount == 0 {
		lists := []model.List{
			{ID: 1, Title: "Biomecânica", Description: "Análise de movimento, postura e prevenção de lesões", Tag: "Assistente Especializado"},
			{ID: 2, Title: "Postagens para Instagram", Description: "Criação de conteúdo e legendas para redes sociais", Tag: "Assistente Criativo"},
		}
		if err := db.Create(&lists).Error; err != nil {
			return err
		}
	}

	return nil
}
