package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/credentials"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() (surname string, givenName string) {
	surname = commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1

	for i := 0; i < nameLength; i++ {
		givenName += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname, givenName
}

var digits = "0123456789"

// GenerateEmailFromChineseName 用姓名的拼音加随机数字生成邮箱的本地部分
func GenerateEmailFromChineseName(chineseName string, emailDomainName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	localPart := ""

	for _, p := range pinyinArray {
		length := rand.Intn(len(p)) + 1
		localPart += p[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		localPart += string(digits[rand.Intn(len(digits))])
	}

	return localPart + "@" + emailDomainName
}

func GenerateRandomEmployeeID() string {
	return fmt.Sprintf("E%05d", rand.Intn(100000))
}

func GenerateRandomPhoneNumber() string {
	number := "1"
	for i := 0; i < 10; i++ {
		number += string(digits[rand.Intn(len(digits))])
	}
	return number
}

// GenerateRandomMonthYear 生成 YYYY-MM 形式的月份，用于工资单测试数据
func GenerateRandomMonthYear() string {
	year := 2023 + rand.Intn(3)
	month := rand.Intn(12) + 1
	return fmt.Sprintf("%04d-%02d", year, month)
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	surname, givenName := GenerateRandomChineseName()

	user := &domain.User{
		EmployeeID:  GenerateRandomEmployeeID(),
		Email:       GenerateEmailFromChineseName(surname+givenName, emailDomainName),
		FirstName:   givenName,
		LastName:    surname,
		PhoneNumber: GenerateRandomPhoneNumber(),
	}
	if err := credentials.SetPassword(user, password); err != nil {
		return nil, err
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}
